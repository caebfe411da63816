package main

import (
	"log"

	transport "socialfeed/internal/transport/http"
)

func main() {
	if err := transport.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
