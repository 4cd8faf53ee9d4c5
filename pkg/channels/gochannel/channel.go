// Package gochannel provides the in-memory publisher/subscriber pair for the event bus.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// CreateChannel returns one GoChannel serving as both publisher and subscriber. Events
// stay inside the process, which suits single-shot CLI runs and local development.
func CreateChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	return newChannel(logger, gochannel.Config{
		OutputChannelBuffer: 256,
	})
}

// CreateTestChannel keeps published events for late subscribers and blocks publishers until
// delivery is acknowledged.
func CreateTestChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	return newChannel(logger, gochannel.Config{
		OutputChannelBuffer:            16,
		Persistent:                     true,
		BlockPublishUntilSubscriberAck: true,
	})
}

func newChannel(logger watermill.LoggerAdapter, config gochannel.Config) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	pubSub := gochannel.NewGoChannel(config, logger)

	return pubSub, pubSub, nil
}
