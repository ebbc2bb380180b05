package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"chat-layer/eventbus"
	"chat-layer/httpclient"
	"chat-layer/logger"
	"chat-layer/repositories"
)

// Dispatcher fans one conversation event out to per-endpoint delivery jobs.
// Each job retries independently on its own topic, so one slow endpoint
// never delays the others.
type Dispatcher struct {
	bus      eventbus.EventBus
	webhooks *repositories.WebhookRepository
}

func NewDispatcher(bus eventbus.EventBus, webhooks *repositories.WebhookRepository) *Dispatcher {
	return &Dispatcher{bus: bus, webhooks: webhooks}
}

func (d *Dispatcher) FanOut(ctx context.Context, ev eventbus.ConversationEvent) error {
	endpoints, err := d.webhooks.ListActiveForEvent(ctx, ev.Type)
	if err != nil {
		return fmt.Errorf("failed to list webhook endpoints: %w", err)
	}
	for i := range endpoints {
		job := eventbus.WebhookDelivery{
			WebhookID: endpoints[i].ID,
			EventType: ev.Type,
			Event:     ev,
		}
		evt, err := eventbus.NewJSONEvent("", job, 0)
		if err != nil {
			return err
		}
		if err := d.bus.Publish(ctx, eventbus.TopicWebhookDeliveries.Base(), evt); err != nil {
			return fmt.Errorf("failed to enqueue delivery for webhook %s: %w", endpoints[i].ID, err)
		}
	}
	if len(endpoints) > 0 {
		logger.Log.Debugf("fanned out %s to %d webhook(s)", ev.Type, len(endpoints))
	}
	return nil
}

// Deliverer posts one conversation event to one endpoint. The request body
// is signed with the endpoint's secret so receivers can verify origin.
type Deliverer struct {
	webhooks *repositories.WebhookRepository
	client   *http.Client
}

func NewDeliverer(webhooks *repositories.WebhookRepository) *Deliverer {
	return &Deliverer{
		webhooks: webhooks,
		client:   httpclient.NewDefault(),
	}
}

// Deliver runs one delivery attempt. A returned error sends the job to the
// retry schedule; endpoints that disappeared or were deactivated in the
// meantime drop the job silently.
func (d *Deliverer) Deliver(ctx context.Context, job eventbus.WebhookDelivery) error {
	endpoint, err := d.webhooks.FindByID(ctx, job.WebhookID)
	if err != nil {
		return fmt.Errorf("failed to load webhook %s: %w", job.WebhookID, err)
	}
	if endpoint == nil || !endpoint.Active {
		logger.Log.Debugf("webhook %s gone or inactive, dropping %s", job.WebhookID, job.EventType)
		return nil
	}

	body, err := json.Marshal(job.Event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", job.EventType)
	req.Header.Set("X-Webhook-Signature", Sign(endpoint.Secret, body))

	resp, err := d.client.Do(req)
	if err != nil {
		d.record(job.WebhookID, false, err.Error())
		return fmt.Errorf("delivery to %s failed: %w", endpoint.URL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("endpoint returned %d", resp.StatusCode)
		d.record(job.WebhookID, false, msg)
		return fmt.Errorf("delivery to %s: %s", endpoint.URL, msg)
	}

	d.record(job.WebhookID, true, "")
	return nil
}

// record updates delivery bookkeeping detached from the request context:
// the failure count must advance even when the attempt timed out.
func (d *Deliverer) record(webhookID string, success bool, deliveryErr string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.webhooks.RecordDelivery(ctx, webhookID, success, deliveryErr); err != nil {
		logger.Log.Errorf("failed to record delivery for webhook %s: %v", webhookID, err)
	}
}

// Sign computes the signature receivers compare against: an HMAC-SHA256 of
// the raw request body keyed with the endpoint secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
