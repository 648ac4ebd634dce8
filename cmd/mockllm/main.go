package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/llmbench/llmbench/test/mockllm"
)

func main() {
	addr := flag.String("addr", ":8888", "Server address")
	latency := flag.Duration("latency", 0, "Artificial delay before each response")
	failEvery := flag.Int("fail-every", 0, "Fail every n-th request (0 disables)")
	failStatus := flag.Int("fail-status", 503, "Status code for injected failures")
	apiKey := flag.String("api-key", "", "Require this bearer token")
	flag.Parse()

	state := mockllm.NewState()
	state.SetLatency(*latency)
	state.SetFailEvery(*failEvery, *failStatus)
	state.SetAPIKey(*apiKey)
	server := mockllm.NewServer(state)

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down mock chat completion server...")
		os.Exit(0)
	}()

	log.Printf("Starting mock chat completion server on %s", *addr)
	if err := server.Run(*addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
