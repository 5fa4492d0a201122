package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ghmodels/pkg/llm"
)

// fakeCompleter records requests and replays canned results.
type fakeCompleter struct {
	requests []llm.ChatRequest
	response *llm.ChatResponse
	tokens   []llm.Token
	err      error

	// waiting, when set, is closed once a stream starts; the stream then
	// blocks until its context ends.
	waiting chan struct{}
}

func (f *fakeCompleter) CompleteResponse(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeCompleter) CompleteStreaming(ctx context.Context, req llm.ChatRequest) iter.Seq2[llm.Token, error] {
	f.requests = append(f.requests, req)
	return func(yield func(llm.Token, error) bool) {
		if f.waiting != nil {
			close(f.waiting)
			<-ctx.Done()
			yield(llm.Token{}, ctx.Err())
			return
		}
		for _, tok := range f.tokens {
			if !yield(tok, nil) {
				return
			}
		}
		if f.err != nil {
			yield(llm.Token{}, f.err)
		}
	}
}

func postChat(s *Server, body string) (*http.Response, string) {
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req, 5000)
	Expect(err).NotTo(HaveOccurred())
	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp, string(data)
}

var _ = Describe("Server", func() {
	var (
		fake   *fakeCompleter
		server *Server
	)

	BeforeEach(func() {
		fake = &fakeCompleter{}
		server = NewServer(Config{ListenAddr: ":0"}, fake, nil)
	})

	Describe("GET /ping", func() {
		It("answers pong", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(Equal(`"pong"`))
		})
	})

	Describe("POST /chat", func() {
		It("rejects malformed bodies", func() {
			resp, body := postChat(server, "{")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(body).To(ContainSubstring("invalid request body"))
		})

		It("rejects requests without messages", func() {
			resp, body := postChat(server, `{"messages": []}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(body).To(ContainSubstring("messages are required"))
			Expect(fake.requests).To(BeEmpty())
		})

		It("returns the completion as JSON", func() {
			fake.response = &llm.ChatResponse{
				ID:         "cmpl-1",
				Model:      "openai/gpt-4o",
				Message:    llm.AssistantMessage("Hi there"),
				StopReason: "stop",
				Usage:      &llm.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
			}

			resp, body := postChat(server, `{"model":"openai/gpt-4o-mini","messages":[{"role":"user","content":"Hi"}],"temperature":0}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out ChatResponse
			Expect(json.Unmarshal([]byte(body), &out)).To(Succeed())
			Expect(out.Content).To(Equal("Hi there"))
			Expect(out.StopReason).To(Equal("stop"))
			Expect(out.Usage.TotalTokens).To(Equal(5))

			Expect(fake.requests).To(HaveLen(1))
			Expect(fake.requests[0].Model).To(Equal("openai/gpt-4o-mini"))
			Expect(*fake.requests[0].Temperature).To(BeZero())
			Expect(fake.requests[0].Messages[0].Content).To(Equal("Hi"))
		})

		It("maps upstream API errors to bad gateway", func() {
			fake.err = &llm.APIError{StatusCode: 401, Message: "Bad credentials"}

			resp, body := postChat(server, `{"messages":[{"role":"user","content":"Hi"}]}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))

			var out ErrorResponse
			Expect(json.Unmarshal([]byte(body), &out)).To(Succeed())
			Expect(out.UpstreamStatus).To(Equal(401))
			Expect(out.Error).To(ContainSubstring("Bad credentials"))
		})

		It("passes rate limiting through", func() {
			fake.err = &llm.APIError{StatusCode: 429, Message: "slow down"}

			resp, _ := postChat(server, `{"messages":[{"role":"user","content":"Hi"}]}`)
			Expect(resp.StatusCode).To(Equal(http.StatusTooManyRequests))
		})

		It("maps configuration errors to internal server error", func() {
			fake.err = &llm.ConfigurationError{Key: "GITHUB_TOKEN"}

			resp, _ := postChat(server, `{"messages":[{"role":"user","content":"Hi"}]}`)
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		})

		It("re-streams tokens as SSE and terminates with DONE", func() {
			fake.tokens = []llm.Token{llm.DeltaToken("Hel"), llm.DeltaToken("lo")}

			resp, body := postChat(server, `{"stream":true,"messages":[{"role":"user","content":"Hi"}]}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))

			Expect(body).To(Equal(
				`data: {"kind":"delta","content":"Hel"}` + "\n\n" +
					`data: {"kind":"delta","content":"lo"}` + "\n\n" +
					"data: [DONE]\n\n",
			))
		})

		It("reports a stream failure as an error event before DONE", func() {
			fake.tokens = []llm.Token{llm.DeltaToken("partial")}
			fake.err = errors.New("connection reset")

			_, body := postChat(server, `{"stream":true,"messages":[{"role":"user","content":"Hi"}]}`)
			Expect(body).To(ContainSubstring(`data: {"kind":"delta","content":"partial"}`))
			Expect(body).To(ContainSubstring("event: error\n" + `data: {"error":"connection reset"}`))
			Expect(body).To(HaveSuffix("data: [DONE]\n\n"))
		})

		It("cancels in-flight streams when the server stops", func() {
			fake.waiting = make(chan struct{})

			done := make(chan string, 1)
			go func() {
				defer GinkgoRecover()
				_, body := postChat(server, `{"stream":true,"messages":[{"role":"user","content":"Hi"}]}`)
				done <- body
			}()

			Eventually(fake.waiting).Should(BeClosed())
			server.stop()

			var body string
			Eventually(done, "5s").Should(Receive(&body))
			Expect(body).To(ContainSubstring("event: error\n" + `data: {"error":"context canceled"}`))
			Expect(body).To(HaveSuffix("data: [DONE]\n\n"))
		})
	})
})
