package push_test

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"taskflow/client/push"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/fundwit/go-commons/types"
)

func TestUserChannel(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should derive the channel name from the user id", func(t *testing.T) {
		Expect(push.UserChannel(123)).To(Equal("user-123"))
	})
}

func TestPublish(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should be disabled without a configured gateway", func(t *testing.T) {
		os.Unsetenv("PUSH_GATEWAY_URL")
		push.Bootstrap()
		Expect(push.Publish(123, push.Message{Title: "hello"}, nil)).To(BeNil())
	})

	t.Run("should post the message on the user channel", func(t *testing.T) {
		var gotPath, gotBody string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			body, _ := ioutil.ReadAll(r.Body)
			gotBody = string(body)
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		os.Setenv("PUSH_GATEWAY_URL", server.URL)
		defer os.Unsetenv("PUSH_GATEWAY_URL")
		push.Bootstrap()

		msg := push.Message{ID: 1, Type: "approval", Title: "Submission awaiting review",
			Message: "user-200 submitted work", URL: "/tasks/10"}
		Expect(push.Publish(types.ID(123), msg, nil)).To(BeNil())
		Expect(gotPath).To(Equal("/channels/user-123/messages"))
		Expect(gotBody).To(MatchJSON(`{"id": "1", "type": "approval", "title": "Submission awaiting review",
			"message": "user-200 submitted work", "url": "/tasks/10", "createTime": null}`))
	})

	t.Run("should surface gateway errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		os.Setenv("PUSH_GATEWAY_URL", server.URL)
		defer os.Unsetenv("PUSH_GATEWAY_URL")
		push.Bootstrap()

		Expect(push.Publish(123, push.Message{}, nil)).ToNot(BeNil())
	})
}
