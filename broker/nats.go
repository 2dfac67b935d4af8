package broker

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"runeRelicServer/config"
	"runeRelicServer/proof"

	"github.com/nats-io/nats.go"
)

// ProofJob is what an external prover needs to start on a finished match.
// The transcript itself is fetched from the API by match id.
type ProofJob struct {
	MatchID          string    `json:"matchId"`
	TranscriptDigest string    `json:"transcriptDigest"`
	PublicInputs     string    `json:"publicInputs"`
	TranscriptBytes  int       `json:"transcriptBytes"`
	EndTick          uint32    `json:"endTick"`
	CreatedAt        time.Time `json:"createdAt"`
}

// NewProofJob builds the job for a finished transcript. size is the length
// of the stored encoding.
func NewProofJob(t *proof.Transcript, size int) ProofJob {
	pi := proof.PublicInputsFromTranscript(t)
	return ProofJob{
		MatchID:          t.Metadata.MatchID.String(),
		TranscriptDigest: t.Digest().Hex(),
		PublicInputs:     hex.EncodeToString(pi.Bytes()),
		TranscriptBytes:  size,
		EndTick:          t.Result.EndTick,
		CreatedAt:        time.Now().UTC(),
	}
}

/* =========================
   PUBLISHER
========================= */

type Publisher struct {
	conn    *nats.Conn
	subject string
}

// Connect dials NATS with reconnect handlers that only log.
func Connect(url, subject string) (*Publisher, error) {
	if url == "" {
		url = config.DefaultNATSURL
	}
	if subject == "" {
		subject = config.ProofJobSubject
	}

	conn, err := nats.Connect(url,
		nats.Name("rune-relic-server"),
		nats.MaxReconnects(config.NATSMaxReconnects),
		nats.ReconnectWait(config.NATSReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("⚠️ NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Printf("✅ NATS reconnected to %s", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Println("🔌 NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Printf("✅ NATS connected - subject: %s", subject)
	return &Publisher{conn: conn, subject: subject}, nil
}

func (p *Publisher) Subject() string {
	return p.subject
}

// PublishJob is fire-and-forget; NATS buffers while reconnecting.
func (p *Publisher) PublishJob(job ProofJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal proof job: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish proof job: %w", err)
	}
	log.Printf("📤 Proof job published for match %s", job.MatchID)
	return nil
}

func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
