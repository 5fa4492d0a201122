package openai_test

import (
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ghmodels/pkg/llm"
	"github.com/papercomputeco/ghmodels/pkg/llm/openai"
)

var _ = Describe("OpenAI codec", func() {
	Describe("EncodeRequest", func() {
		It("renders the chat-completions body", func() {
			req := llm.ChatRequest{
				Model:       "openai/gpt-4o",
				Messages:    []llm.Message{llm.SystemMessage("be brief"), llm.UserMessage("hi")},
				Temperature: llm.Ptr(0.2),
				MaxTokens:   llm.Ptr(4000),
				Stream:      true,
			}

			payload, err := openai.EncodeRequest(req)
			Expect(err).NotTo(HaveOccurred())

			var decoded map[string]any
			Expect(json.Unmarshal(payload, &decoded)).To(Succeed())
			Expect(decoded).To(HaveKeyWithValue("model", "openai/gpt-4o"))
			Expect(decoded).To(HaveKeyWithValue("temperature", 0.2))
			Expect(decoded).To(HaveKeyWithValue("max_tokens", float64(4000)))
			Expect(decoded).To(HaveKeyWithValue("stream", true))
			Expect(decoded["messages"]).To(Equal([]any{
				map[string]any{"role": "system", "content": "be brief"},
				map[string]any{"role": "user", "content": "hi"},
			}))
		})

		It("always emits stream, even when false", func() {
			payload, err := openai.EncodeRequest(llm.ChatRequest{Model: "m", Messages: []llm.Message{llm.UserMessage("x")}})
			Expect(err).NotTo(HaveOccurred())
			Expect(string(payload)).To(ContainSubstring(`"stream":false`))
			Expect(string(payload)).NotTo(ContainSubstring("temperature"))
		})

		It("keeps empty message content as an empty string", func() {
			payload, err := openai.EncodeRequest(llm.ChatRequest{Model: "m", Messages: []llm.Message{llm.UserMessage("")}})
			Expect(err).NotTo(HaveOccurred())
			Expect(string(payload)).To(ContainSubstring(`"content":""`))
		})
	})

	Describe("ParseResponse", func() {
		It("returns the first choice", func() {
			payload := []byte(`{
				"id": "chatcmpl-1",
				"object": "chat.completion",
				"created": 1700000000,
				"model": "gpt-4o",
				"choices": [
					{"index": 0, "message": {"role": "assistant", "content": "Hello!"}, "finish_reason": "stop"},
					{"index": 1, "message": {"role": "assistant", "content": "ignored"}, "finish_reason": "stop"}
				],
				"usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}
			}`)

			resp, err := openai.ParseResponse(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.ID).To(Equal("chatcmpl-1"))
			Expect(resp.Model).To(Equal("gpt-4o"))
			Expect(resp.Message).To(Equal(llm.AssistantMessage("Hello!")))
			Expect(resp.StopReason).To(Equal("stop"))
			Expect(resp.CreatedAt.Unix()).To(Equal(int64(1700000000)))
			Expect(resp.Usage).To(Equal(&llm.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}))
			Expect(resp.RawResponse).To(Equal(json.RawMessage(payload)))
		})

		It("flattens content part arrays", func() {
			resp, err := openai.ParseResponse([]byte(`{"choices":[{"message":{"content":[{"type":"text","text":"a"},{"type":"image_url"},{"type":"text","text":"b"}]}}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Message.Content).To(Equal("ab"))
			Expect(resp.Message.Role).To(Equal(llm.RoleAssistant))
		})

		It("reports no content when there are no choices", func() {
			_, err := openai.ParseResponse([]byte(`{"model":"gpt-4o","choices":[]}`))
			Expect(errors.Is(err, llm.ErrNoContent)).To(BeTrue())
		})

		It("fails on invalid JSON", func() {
			_, err := openai.ParseResponse([]byte(`{nope`))
			Expect(err).To(HaveOccurred())
		})

		It("fails on an empty payload", func() {
			_, err := openai.ParseResponse(nil)
			Expect(err).To(MatchError(openai.ErrEmptyPayload))
		})
	})

	Describe("ParseStreamChunk", func() {
		It("extracts a delta token", func() {
			chunk, err := openai.ParseStreamChunk([]byte(`{"model":"gpt-4o","choices":[{"delta":{"content":"Hel"}}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Model).To(Equal("gpt-4o"))
			Expect(chunk.Token).To(Equal(llm.DeltaToken("Hel")))
		})

		It("falls back to message content", func() {
			chunk, err := openai.ParseStreamChunk([]byte(`{"choices":[{"message":{"content":"whole"}}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Token).To(Equal(llm.MessageToken("whole")))
		})

		It("prefers delta over message when both are present", func() {
			chunk, err := openai.ParseStreamChunk([]byte(`{"choices":[{"delta":{"content":"d"},"message":{"content":"m"}}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Token).To(Equal(llm.DeltaToken("d")))
		})

		It("uses message content when the delta is empty", func() {
			chunk, err := openai.ParseStreamChunk([]byte(`{"choices":[{"delta":{"content":""},"message":{"content":"m"}}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Token).To(Equal(llm.MessageToken("m")))
		})

		DescribeTable("chunks without a token",
			func(payload string) {
				chunk, err := openai.ParseStreamChunk([]byte(payload))
				Expect(err).NotTo(HaveOccurred())
				Expect(chunk.Token.IsZero()).To(BeTrue())
			},
			Entry("role-only delta", `{"choices":[{"delta":{"role":"assistant"}}]}`),
			Entry("no choices", `{"choices":[]}`),
			Entry("non-string delta content", `{"choices":[{"delta":{"content":42}}]}`),
			Entry("null content", `{"choices":[{"delta":{"content":null}}]}`),
		)

		It("records finish reason and usage", func() {
			chunk, err := openai.ParseStreamChunk([]byte(`{"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"total_tokens":9}}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.StopReason).To(Equal("stop"))
			Expect(chunk.Usage.TotalTokens).To(Equal(9))
		})

		It("fails on invalid JSON", func() {
			_, err := openai.ParseStreamChunk([]byte(`{"choices":[`))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ParseError", func() {
		It("decodes the provider error object", func() {
			apiErr := openai.ParseError(429, []byte(`{"error":{"message":"Rate limit reached","type":"rate_limit","code":"RateLimitReached"}}`))
			Expect(apiErr.StatusCode).To(Equal(429))
			Expect(apiErr.Message).To(Equal("Rate limit reached"))
			Expect(apiErr.Type).To(Equal("rate_limit"))
			Expect(apiErr.Code).To(Equal("RateLimitReached"))
		})

		It("accepts numeric codes", func() {
			apiErr := openai.ParseError(400, []byte(`{"error":{"message":"bad","code":400}}`))
			Expect(apiErr.Code).To(Equal("400"))
		})

		DescribeTable("falls back to the default message",
			func(body string) {
				apiErr := openai.ParseError(502, []byte(body))
				Expect(apiErr.StatusCode).To(Equal(502))
				Expect(apiErr.Message).To(Equal(openai.DefaultErrorMessage))
			},
			Entry("html body", `<html>bad gateway</html>`),
			Entry("empty body", ``),
			Entry("no error object", `{"detail":"x"}`),
			Entry("blank message", `{"error":{"message":"  "}}`),
		)
	})
})
