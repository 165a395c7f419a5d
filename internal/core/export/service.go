// Package export stores rendered sitemap files, in Supabase storage when
// configured and under DATA_DIR otherwise.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"sitemapper/internal/config"
	"sitemapper/internal/logger"

	"github.com/antoineross/supabase-go"
	storage_go "github.com/supabase-community/storage-go"
)

const signedURLTTL = 7 * 24 * time.Hour

type Service struct {
	cfg            config.Config
	supabaseClient *supabase.Client
	http           *http.Client
	log            *logger.Logger
}

func New(cfg config.Config) *Service {
	s := &Service{cfg: cfg, http: &http.Client{Timeout: 15 * time.Second}, log: logger.New("Export")}
	if cfg.SupabaseEnabled() {
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, nil)
		if err != nil {
			s.log.LogWarnf("Supabase client init failed, exports stay local: %v", err)
		} else {
			s.supabaseClient = client
		}
	}
	return s
}

// Client exposes the Supabase client so other stores can share it.
func (s *Service) Client() *supabase.Client { return s.supabaseClient }

// SaveSitemap stores a sitemap XML document for jobID and returns where it
// can be fetched. Production requires Supabase storage.
func (s *Service) SaveSitemap(ctx context.Context, jobID string, data []byte) (string, error) {
	name := sanitize(jobID) + ".xml"
	if s.supabaseClient != nil && s.cfg.SupabaseBucket != "" {
		objectPath := path.Join("sitemaps", name)
		contentType := "application/xml"
		upsert := true
		_, err := s.supabaseClient.Storage.UploadFile(s.cfg.SupabaseBucket, objectPath, bytes.NewReader(data), storage_go.FileOptions{ContentType: &contentType, Upsert: &upsert})
		if err == nil {
			signed, serr := s.signedURL(ctx, s.cfg.SupabaseBucket, objectPath)
			if serr == nil {
				return signed, nil
			}
			err = serr
		}
		s.log.LogWarnf("Supabase export for job %s failed: %v", jobID, err)
		if s.cfg.AppEnv == "production" {
			return "", fmt.Errorf("failed to store sitemap in Supabase storage: %w", err)
		}
	} else if s.cfg.AppEnv == "production" {
		return "", fmt.Errorf("supabase storage is required in production environment")
	}
	return s.saveLocal(name, data)
}

func (s *Service) saveLocal(name string, data []byte) (string, error) {
	dir := filepath.Join(s.cfg.DataDir, "sitemaps")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", err
	}
	return "/files/sitemaps/" + name, nil
}

// signedURL calls the storage REST API directly with the service key.
func (s *Service) signedURL(ctx context.Context, bucket, objectPath string) (string, error) {
	base := strings.TrimRight(s.cfg.SupabaseURL, "/")
	body, err := json.Marshal(map[string]int{"expiresIn": int(signedURLTTL.Seconds())})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", base, bucket, objectPath), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.SupabaseServiceKey)
	req.Header.Set("apikey", s.cfg.SupabaseServiceKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request signed URL: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to create signed URL: status %d", resp.StatusCode)
	}
	var signed struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&signed); err != nil {
		return "", fmt.Errorf("failed to decode signed URL response: %w", err)
	}
	p := signed.SignedURL
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasPrefix(p, "/storage/v1/") {
		p = "/storage/v1" + p
	}
	return base + p, nil
}

func sanitize(s string) string {
	out := strings.NewReplacer("/", "-", "\\", "-", ":", "-", "..", "-").Replace(s)
	if len(out) > 64 {
		out = out[:64]
	}
	return out
}
