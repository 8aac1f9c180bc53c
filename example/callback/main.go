package main

import (
	"context"
	"fmt"
	"log"

	"github.com/JozefStefanInstitute/StreamStory/pkg/streamstory"
)

func main() {
	flow, err := streamstory.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	callback := func(channelID string, payload []byte) error {
		fmt.Printf("channel=%s payload=%s\n", channelID, payload)
		return nil
	}

	if err := flow.Run(ctx, streamstory.DeliverCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
