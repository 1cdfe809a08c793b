package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danwue/elekter/internal/pkg/model"
)

var configuredDevices = map[string]struct{}{}

// WriteTransition publishes the device's new state as a retained message
// so late subscribers see the current state immediately.
func (s *service) WriteTransition(_ context.Context, tr model.Transition) error {
	topic := fmt.Sprintf("elekter/%s/state", tr.Slug)

	payload, err := json.Marshal(map[string]any{
		"state":       model.StateString(tr.On),
		"slot":        tr.Slot,
		"price":       tr.Price,
		"switched_at": tr.At,
	})
	if err != nil {
		return err
	}

	token := s.client.Publish(topic, 1, true, payload)
	if err := token.Error(); err != nil {
		return err
	}
	if !token.WaitTimeout(time.Second * 5) {
		return errors.New("mqtt publish timed out")
	}
	return nil
}

// RegisterDevice announces the device once per process lifetime.
func (s *service) RegisterDevice(_ context.Context, name, slug string) error {
	if _, exists := configuredDevices[slug]; exists {
		return nil
	}

	topic := fmt.Sprintf("elekter/%s/config", slug)
	payload, err := json.Marshal(map[string]string{"name": name, "slug": slug})
	if err != nil {
		return err
	}

	token := s.client.Publish(topic, 1, true, payload)
	if err := token.Error(); err != nil {
		return err
	}
	if token.WaitTimeout(time.Second * 5) {
		configuredDevices[slug] = struct{}{}
	}
	return nil
}
