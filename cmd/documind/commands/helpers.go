package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cloudwego/eino/components/model"

	"github.com/ronak8180/DocuMind/internal/embedder"
	"github.com/ronak8180/DocuMind/internal/history"
	"github.com/ronak8180/DocuMind/internal/index"
	"github.com/ronak8180/DocuMind/internal/server"
)

// buildIndexManager constructs the session index manager from the
// environment. INDEX_BACKEND selects the storage backend: "filesystem"
// (default) persists one JSON index per session under INDEX_DIR, "qdrant"
// maps each session onto its own Qdrant collection.
// The returned QdrantBackend is nil for the filesystem backend.
func buildIndexManager(log *slog.Logger) (*index.Manager, *index.QdrantBackend, error) {
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	embBackend := getEnvOrDefault("EMBEDDING_PROVIDER", getEnvOrDefault("MODEL_PROVIDER", "ollama"))
	dims := getEnvInt("EMBEDDING_DIMENSIONS", embedder.DefaultDimensions(embBackend))

	switch backend := getEnvOrDefault("INDEX_BACKEND", "filesystem"); backend {
	case "filesystem":
		root := os.Getenv("INDEX_DIR")
		if root == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to resolve home directory for index dir: %w", err)
			}
			root = filepath.Join(home, ".documind", "indexes")
		}
		fs, err := index.NewFSBackend(&index.FSConfig{
			Root:      root,
			Model:     os.Getenv("EMBEDDING_MODEL"),
			Dimension: dims,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open index dir: %w", err)
		}
		log.Info("index backend ready",
			slog.String("backend", "filesystem"), slog.String("dir", root))
		return index.NewManager(emb, fs), nil, nil

	case "qdrant":
		qb, err := index.NewQdrantBackend(&index.QdrantConfig{
			Host:             getEnvOrDefault("QDRANT_HOST", "localhost"),
			Port:             getEnvInt("QDRANT_PORT", 6334),
			CollectionPrefix: os.Getenv("QDRANT_COLLECTION_PREFIX"),
			VectorSize:       uint64(dims), //nolint:gosec // dimensions are bounded
			APIKey:           os.Getenv("QDRANT_API_KEY"),
			UseTLS:           os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		log.Info("index backend ready",
			slog.String("backend", "qdrant"),
			slog.String("host", getEnvOrDefault("QDRANT_HOST", "localhost")))
		return index.NewManager(emb, qb), qb, nil

	default:
		return nil, nil, fmt.Errorf("unknown INDEX_BACKEND %q (want filesystem or qdrant)", backend)
	}
}

// openHistory opens the SQLite session store. DOCUMIND_HISTORY_DB overrides
// the default path (~/.documind/history.db).
func openHistory(log *slog.Logger) (*history.Store, error) {
	dbPath := os.Getenv("DOCUMIND_HISTORY_DB")
	if dbPath == "" {
		var err error
		dbPath, err = history.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve history DB path: %w", err)
		}
	}
	hs, err := history.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store at %s: %w", dbPath, err)
	}
	log.Info("history store opened", slog.String("path", dbPath))
	return hs, nil
}

// buildPingers assembles the readiness probes for the HTTP server: the chat
// model is always probed, Qdrant only when it backs the index.
func buildPingers(chatModel model.ToolCallingChatModel, qb *index.QdrantBackend) []server.Pinger {
	providerName := getEnvOrDefault("MODEL_PROVIDER", "ollama")
	pingers := []server.Pinger{server.NewLLMPinger(chatModel, providerName)}
	if qb != nil {
		pingers = append(pingers, server.NewQdrantPinger(qb.Client()))
	}
	return pingers
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback when unset.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback when unset or unparsable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
