package pubsub

import (
	"context"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// Message aliases the Pub/Sub message so callers need not import the SDK.
type Message = pubsub.Message

// Publisher is the narrow publish surface used by event emitters.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) PublishResult
	Stop()
}

// PublishResult resolves to the server-assigned message id.
type PublishResult interface {
	Get(ctx context.Context) (string, error)
}

type gcpPublisher struct {
	*pubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *Message) PublishResult {
	if p == nil || p.Publisher == nil {
		return failedResult{err: errors.New("publisher not initialized")}
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

func (p *gcpPublisher) Stop() {
	if p == nil || p.Publisher == nil {
		return
	}
	p.Publisher.Stop()
}

type gcpPublishResult struct {
	*pubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}

type failedResult struct {
	err error
}

func (r failedResult) Get(context.Context) (string, error) {
	return "", r.err
}
