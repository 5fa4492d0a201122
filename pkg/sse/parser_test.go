package sse_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ghmodels/pkg/sse"
)

// feedAll feeds every fragment and returns the collected events.
func feedAll(p *sse.Parser, fragments ...string) []sse.Event {
	var out []sse.Event
	for _, f := range fragments {
		events, err := p.Feed([]byte(f))
		Expect(err).NotTo(HaveOccurred())
		out = append(out, events...)
	}
	return out
}

var _ = Describe("Parser", func() {
	var p *sse.Parser

	BeforeEach(func() {
		p = sse.NewParser(0)
	})

	Describe("Feed", func() {
		Context("with whole events", func() {
			It("parses a single event", func() {
				events := feedAll(p, "data: hello world\n\n")
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal([]string{"hello world"}))
				Expect(events[0].Type).To(BeEmpty())
				Expect(events[0].ID).To(BeEmpty())
				Expect(p.Buffered()).To(BeZero())
			})

			It("parses multiple events from one fragment", func() {
				events := feedAll(p, "data: first\n\ndata: second\n\n")
				Expect(events).To(HaveLen(2))
				Expect(events[0].Data).To(Equal([]string{"first"}))
				Expect(events[1].Data).To(Equal([]string{"second"}))
			})

			It("keeps data lines of one block separate", func() {
				events := feedAll(p, "data: one\ndata: two\ndata: three\n\n")
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal([]string{"one", "two", "three"}))
			})

			It("records event type and id", func() {
				events := feedAll(p, "event: content_block_delta\nid: 42\ndata: {\"type\":\"delta\"}\n\n")
				Expect(events).To(HaveLen(1))
				Expect(events[0].Type).To(Equal("content_block_delta"))
				Expect(events[0].ID).To(Equal("42"))
				Expect(events[0].Data).To(Equal([]string{`{"type":"delta"}`}))
			})

			It("parses OpenAI streaming chunks including the sentinel", func() {
				input := "data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\n" +
					"data: {\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n\n" +
					"data: [DONE]\n\n"
				events := feedAll(p, input)
				Expect(events).To(HaveLen(3))
				Expect(events[2].Data).To(Equal([]string{"[DONE]"}))
			})
		})

		Context("with fragmented input", func() {
			It("buffers a partial event until its delimiter arrives", func() {
				events, err := p.Feed([]byte("data: {\"choices\":"))
				Expect(err).NotTo(HaveOccurred())
				Expect(events).To(BeEmpty())
				Expect(p.Buffered()).To(Equal(len("data: {\"choices\":")))

				events, err = p.Feed([]byte("[]}\n"))
				Expect(err).NotTo(HaveOccurred())
				Expect(events).To(BeEmpty())

				events, err = p.Feed([]byte("\ndata: next"))
				Expect(err).NotTo(HaveOccurred())
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal([]string{`{"choices":[]}`}))
				Expect(p.Buffered()).To(Equal(len("data: next")))
			})

			It("produces identical events byte by byte and whole", func() {
				input := "event: a\ndata: alpha\n\n: ping\n\ndata: beta\ndata: gamma\n\ndata: [DONE]\n\n"

				whole := feedAll(sse.NewParser(0), input)

				var bytewise []sse.Event
				bp := sse.NewParser(0)
				for i := range len(input) {
					events, err := bp.Feed([]byte{input[i]})
					Expect(err).NotTo(HaveOccurred())
					bytewise = append(bytewise, events...)
				}

				Expect(bytewise).To(Equal(whole))
				Expect(whole).To(HaveLen(3))
			})

			It("does not split multi-byte characters", func() {
				input := []byte("data: héllo\n\n")
				var out []sse.Event
				for i := range input {
					events, err := p.Feed(input[i : i+1])
					Expect(err).NotTo(HaveOccurred())
					out = append(out, events...)
				}
				Expect(out).To(HaveLen(1))
				Expect(out[0].Data).To(Equal([]string{"héllo"}))
			})
		})

		Context("with field variations", func() {
			It("handles no space after the colon", func() {
				events := feedAll(p, "data:no-space\n\n")
				Expect(events[0].Data).To(Equal([]string{"no-space"}))
			})

			It("trims surrounding whitespace and carriage returns", func() {
				events := feedAll(p, "data:   padded  \r\n\n")
				Expect(events[0].Data).To(Equal([]string{"padded"}))
			})

			It("keeps empty data payloads", func() {
				events := feedAll(p, "data:\n\ndata: \n\n")
				Expect(events).To(HaveLen(2))
				Expect(events[0].Data).To(Equal([]string{""}))
				Expect(events[1].Data).To(Equal([]string{""}))
			})

			It("drops comment-only and blank blocks", func() {
				events := feedAll(p, ": keep-alive\n\n\n\n")
				Expect(events).To(BeEmpty())
			})

			It("ignores unknown fields", func() {
				events := feedAll(p, "retry: 3000\nfoo: bar\ndata: hello\n\n")
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal([]string{"hello"}))
			})

			It("only accepts the data prefix at the start of a line", func() {
				events := feedAll(p, " data: indented\ndata: real\n\n")
				Expect(events[0].Data).To(Equal([]string{"real"}))
			})
		})

		Context("with a buffer limit", func() {
			It("fails once a partial event exceeds the limit", func() {
				small := sse.NewParser(16)
				_, err := small.Feed([]byte("data: " + strings.Repeat("x", 32)))
				Expect(err).To(MatchError(sse.ErrBufferOverflow))

				_, err = small.Feed([]byte("\n\n"))
				Expect(err).To(MatchError(sse.ErrBufferOverflow))
			})

			It("returns events completed before the overflow", func() {
				small := sse.NewParser(16)
				events, err := small.Feed([]byte("data: ok\n\ndata: " + strings.Repeat("x", 32)))
				Expect(err).To(MatchError(sse.ErrBufferOverflow))
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal([]string{"ok"}))
			})

			It("allows complete events larger than the limit inside one fragment", func() {
				small := sse.NewParser(16)
				payload := strings.Repeat("y", 64)
				events, err := small.Feed([]byte("data: " + payload + "\n\n"))
				Expect(err).NotTo(HaveOccurred())
				Expect(events[0].Data).To(Equal([]string{payload}))
			})
		})
	})

	Describe("Close", func() {
		It("discards an unterminated trailing block", func() {
			events := feedAll(p, "data: done\n\ndata: unterminated")
			Expect(events).To(HaveLen(1))
			Expect(p.Close()).To(Equal(len("data: unterminated")))
			Expect(p.Buffered()).To(BeZero())
		})

		It("reports nothing for trailing whitespace", func() {
			feedAll(p, "data: done\n\n\n")
			Expect(p.Close()).To(BeZero())
		})
	})
})
