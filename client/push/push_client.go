package push

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"taskflow/session"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/sony/gobreaker"
)

// Message is the ephemeral payload published on a user's real-time channel.
// The persisted notification row stays authoritative; this copy is lossy.
type Message struct {
	ID         types.ID        `json:"id"`
	Type       string          `json:"type"`
	Title      string          `json:"title"`
	Message    string          `json:"message"`
	URL        string          `json:"url"`
	CreateTime types.Timestamp `json:"createTime"`
}

var (
	PublishFunc = Publish

	gatewayURL string
	httpClient = &http.Client{Timeout: 3 * time.Second}
	breaker    *gobreaker.CircuitBreaker
)

// Bootstrap PUSH_GATEWAY_URL; publishing is disabled when unset.
func Bootstrap() {
	gatewayURL = os.ExpandEnv(os.Getenv("PUSH_GATEWAY_URL"))
	breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "push-gateway",
		Timeout: 30 * time.Second,
	})
}

func UserChannel(userId types.ID) string {
	return "user-" + userId.String()
}

// Publish posts the message to the user's channel on the push gateway.
// Callers treat failures as fire-and-forget: log, no retry.
func Publish(userId types.ID, m Message, s *session.Session) error {
	if gatewayURL == "" {
		return nil
	}

	var childSpan *opentracing.Span
	if s != nil && s.Context != nil {
		parentSpan := opentracing.SpanFromContext(s.Context)
		if parentSpan != nil {
			tracer := parentSpan.Tracer()
			sp := tracer.StartSpan("publish-notification", opentracing.ChildOf(parentSpan.Context()))
			sp.SetTag("channel", UserChannel(userId))
			childSpan = &sp
			defer sp.Finish()
		}
	}

	_, err := breaker.Execute(func() (interface{}, error) {
		body, err := json.Marshal(&m)
		if err != nil {
			return nil, err
		}
		url := fmt.Sprintf("%s/channels/%s/messages", gatewayURL, UserChannel(userId))
		resp, err := httpClient.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("push gateway response status %d", resp.StatusCode)
		}
		return nil, nil
	})

	if childSpan != nil {
		ext.Error.Set(*childSpan, err != nil)
	}
	return err
}
