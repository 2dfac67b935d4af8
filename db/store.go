package db

import (
	"context"
	"fmt"
	"log"

	"runeRelicServer/game"
	"runeRelicServer/proof"
)

/* =========================
   TRANSCRIPT STORAGE
   Postgres when available, Badger otherwise
========================= */

// SaveTranscript encodes t and stores it. It returns the encoded bytes so
// callers can publish the same body they archived.
func SaveTranscript(ctx context.Context, t *proof.Transcript) ([]byte, error) {
	data, err := proof.Encode(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transcript: %w", err)
	}

	if PostgresPool != nil {
		err := SaveMatch(ctx, t, data)
		if err == nil {
			return data, nil
		}
		if LocalArchive == nil {
			return data, err
		}
		log.Printf("⚠️  Postgres save failed, falling back to local archive: %v", err)
	}

	if LocalArchive == nil {
		return data, fmt.Errorf("no transcript storage configured")
	}
	if err := LocalArchive.Put(t.Metadata.MatchID, data); err != nil {
		return data, err
	}
	log.Printf("✅ Archived match %s locally (%d bytes)", t.Metadata.MatchID, len(data))
	return data, nil
}

// LoadTranscriptBytes looks in Postgres first, then the local archive.
func LoadTranscriptBytes(ctx context.Context, id game.MatchID) ([]byte, error) {
	if PostgresPool != nil {
		data, err := LoadTranscript(ctx, id)
		if err != nil {
			log.Printf("⚠️  Postgres load failed for %s: %v", id, err)
		} else if data != nil {
			return data, nil
		}
	}
	if LocalArchive != nil {
		return LocalArchive.Get(id)
	}
	return nil, ErrNotFound
}

// LoadMatchTranscript decodes the stored transcript for id.
func LoadMatchTranscript(ctx context.Context, id game.MatchID) (*proof.Transcript, error) {
	data, err := LoadTranscriptBytes(ctx, id)
	if err != nil {
		return nil, err
	}
	return proof.Decode(data)
}
