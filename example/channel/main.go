package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/JozefStefanInstitute/StreamStory"
)

func main() {
	flow, err := streamstory.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender, messages, closeMessages := streamstory.NewChannelSender("fanout", 32)
	defer closeMessages()

	go fanoutWorker("events", messages)

	if err := flow.Run(ctx, streamstory.DeliverSender(sender)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, messages <-chan streamstory.ChannelMessage) {
	for msg := range messages {
		fmt.Printf("[%s] %s forwarding to %s: %s\n",
			name, time.Now().Format(time.RFC3339), msg.ChannelID, msg.Payload)
	}
}
