package ollama_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/ollama"
)

func TestOllama(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ollama Suite")
}

var _ = Describe("Client", func() {
	var (
		client *ollama.Client
		server *httptest.Server
		status int
	)

	BeforeEach(func() {
		status = http.StatusOK
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/tags" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write([]byte(`{
				"models": [
					{
						"name": "qwen3:8b",
						"model": "qwen3:8b",
						"size": 5225388164,
						"digest": "abc123",
						"details": {
							"format": "gguf",
							"family": "qwen3",
							"parameter_size": "8.2B",
							"quantization_level": "Q4_K_M"
						}
					}
				]
			}`))
		}))
		client = ollama.NewClient(server.URL+"/", time.Second)
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Tags", func() {
		It("should decode the model list", func() {
			tags, err := client.Tags(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(tags.Models).To(HaveLen(1))
			Expect(tags.Models[0].Name).To(Equal("qwen3:8b"))
			Expect(tags.Models[0].Details.Family).To(Equal("qwen3"))
		})

		It("should fail on a non-OK status", func() {
			status = http.StatusInternalServerError
			_, err := client.Tags(context.Background())
			Expect(err).To(MatchError(ContainSubstring("status: 500")))
		})
	})

	Describe("CheckHealth", func() {
		It("should report the server available", func() {
			health := client.CheckHealth(context.Background())
			Expect(health.Available).To(BeTrue())
			Expect(health.Error).ToNot(HaveOccurred())
			Expect(health.Models).To(HaveLen(1))
		})

		It("should report an unreachable server", func() {
			server.Close()
			health := client.CheckHealth(context.Background())
			Expect(health.Available).To(BeFalse())
			Expect(health.Error).To(HaveOccurred())
		})
	})

	Describe("CheckModel", func() {
		It("should accept a pulled model", func() {
			Expect(client.CheckModel(context.Background(), "qwen3:8b")).To(Succeed())
		})

		It("should reject a missing model", func() {
			err := client.CheckModel(context.Background(), "llama3:70b")
			Expect(err).To(MatchError(ContainSubstring("not available")))
		})
	})
})
