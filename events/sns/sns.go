// Package sns provides a deployhook.EventStream implementation that publishes
// events to SNS.
package sns

import (
	"encoding/json"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/pkg/errors"
	"github.com/remind101/deployhook"
)

// Event represents the schema for an SNS payload.
type Event struct {
	Event   string
	Message string
	Data    interface{}
}

type snsClient interface {
	Publish(*sns.PublishInput) (*sns.PublishOutput, error)
}

// EventStream is an implementation of the deployhook.EventStream interface
// backed by SNS.
type EventStream struct {
	// The topic to publish events to.
	TopicARN string

	sns snsClient
}

func NewEventStream(c client.ConfigProvider) *EventStream {
	return &EventStream{
		sns: sns.New(c),
	}
}

func (e *EventStream) PublishEvent(event deployhook.Event) error {
	raw, err := json.Marshal(&Event{
		Event:   event.Event(),
		Message: event.String(),
		Data:    event,
	})
	if err != nil {
		return err
	}

	_, err = e.sns.Publish(&sns.PublishInput{
		Message:  aws.String(string(raw)),
		TopicArn: aws.String(e.TopicARN),
	})
	return errors.Wrap(err, "publishing to sns")
}
