package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"

	"runeRelicServer/crypto"
	"runeRelicServer/db"
	"runeRelicServer/game"
	"runeRelicServer/proof"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/joho/godotenv"
)

// revealFile is the JSON shape served by /api/match/{id}/commitment and
// /api/match/{id}/reveal, merged into one document.
type revealFile struct {
	Commitment  proof.Commitment `json:"commitment"`
	Preimage    *proof.Preimage  `json:"preimage"`
	BlockHash   crypto.Hash      `json:"blockHash"`
	BlockHeight uint64           `json:"blockHeight"`
}

type report struct {
	Source           string                   `json:"source"`
	MatchID          game.MatchID             `json:"matchId"`
	TranscriptDigest crypto.Hash              `json:"transcriptDigest"`
	Replay           proof.VerificationResult `json:"replay"`
	PublicInputs     string                   `json:"publicInputs,omitempty"`
	Commitment       string                   `json:"commitment,omitempty"`
}

func main() {
	var (
		hexData    = flag.String("hex", "", "Transcript as hex instead of files")
		matchID    = flag.String("match", "", "Load the transcript from storage (DATABASE_URL / ARCHIVE_DIR)")
		revealPath = flag.String("reveal", "", "JSON file with commitment, preimage, blockHash and blockHeight")
		workers    = flag.Int("workers", runtime.NumCPU(), "Concurrent replays when several files are given")
		showInputs = flag.Bool("inputs", false, "Print the public inputs of each transcript")
		asJSON     = flag.Bool("json", false, "Print results as JSON")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: verify_transcript [flags] [file.rrt ...]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	sources, transcripts, err := load(*hexData, *matchID, flag.Args())
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if len(transcripts) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var reveal *revealFile
	if *revealPath != "" {
		if len(transcripts) != 1 {
			log.Fatal("❌ -reveal checks exactly one transcript")
		}
		reveal, err = readReveal(*revealPath)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
	}

	results, err := proof.VerifyBatch(context.Background(), transcripts, *workers)
	if err != nil {
		log.Fatalf("❌ Verification aborted: %v", err)
	}

	ok := true
	reports := make([]report, len(transcripts))
	for i, t := range transcripts {
		r := report{
			Source:           sources[i],
			MatchID:          t.Metadata.MatchID,
			TranscriptDigest: t.Digest(),
			Replay:           results[i],
		}
		if *showInputs {
			r.PublicInputs = hexutil.Encode(proof.PublicInputsFromTranscript(t).Bytes())
		}
		if reveal != nil {
			rev := &proof.Reveal{
				Preimage:    reveal.Preimage,
				BlockHash:   reveal.BlockHash,
				BlockHeight: reveal.BlockHeight,
				Transcript:  t,
			}
			if err := rev.Verify(reveal.Commitment); err != nil {
				r.Commitment = err.Error()
				ok = false
			} else {
				r.Commitment = "ok"
			}
		}
		ok = ok && r.Replay.Valid
		reports[i] = r
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			log.Fatalf("❌ Failed to write JSON: %v", err)
		}
	} else {
		for _, r := range reports {
			printReport(r)
		}
	}

	if !ok {
		os.Exit(1)
	}
}

func load(hexData, matchID string, files []string) ([]string, []*proof.Transcript, error) {
	var sources []string
	var out []*proof.Transcript

	if hexData != "" {
		data, err := hexutil.Decode(ensure0x(hexData))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decode hex: %w", err)
		}
		t, err := proof.Decode(data)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decode transcript: %w", err)
		}
		sources = append(sources, "hex")
		out = append(out, t)
	}

	if matchID != "" {
		t, err := loadFromStorage(matchID)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, "match:"+matchID)
		out = append(out, t)
	}

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		t, err := proof.Decode(data)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		sources = append(sources, path)
		out = append(out, t)
	}
	return sources, out, nil
}

func loadFromStorage(matchID string) (*proof.Transcript, error) {
	id, err := game.ParseMatchID(matchID)
	if err != nil {
		return nil, fmt.Errorf("invalid match id: %w", err)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables")
	}
	if os.Getenv("DATABASE_URL") != "" {
		if err := db.InitPostgres(); err != nil {
			log.Printf("⚠️  Warning: PostgreSQL initialization failed: %v", err)
		}
		defer db.ClosePostgres()
	}
	if dir := os.Getenv("ARCHIVE_DIR"); dir != "" {
		if err := db.InitArchive(dir); err != nil {
			log.Printf("⚠️  Warning: Local archive initialization failed: %v", err)
		}
		defer db.CloseArchive()
	}

	t, err := db.LoadMatchTranscript(context.Background(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to load match %s: %w", id, err)
	}
	return t, nil
}

func readReveal(path string) (*revealFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reveal: %w", err)
	}
	var r revealFile
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse reveal: %w", err)
	}
	return &r, nil
}

func ensure0x(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}

func printReport(r report) {
	status := "✅ VALID"
	if !r.Replay.Valid {
		status = "❌ INVALID"
	}
	fmt.Printf("%s  %s\n", status, r.Source)
	fmt.Printf("   match:       %s\n", r.MatchID)
	fmt.Printf("   digest:      %s\n", r.TranscriptDigest)
	fmt.Printf("   final hash:  %s\n", r.Replay.ComputedHash)
	fmt.Printf("   checkpoints: %d\n", len(r.Replay.CheckpointResults))
	if r.Replay.Error != "" {
		fmt.Printf("   error:       %s\n", r.Replay.Error)
	}
	if r.Commitment != "" {
		fmt.Printf("   commitment:  %s\n", r.Commitment)
	}
	if r.PublicInputs != "" {
		fmt.Printf("   inputs:      %s\n", r.PublicInputs)
	}
	fmt.Println()
}
