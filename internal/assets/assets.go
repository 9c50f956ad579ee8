package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"avvai/internal/config"
	"avvai/internal/constants"
	"avvai/internal/utils"
)

var ErrAssetAcquisition = errors.New("model asset acquisition failed")

// hubModelInfo - the only part of the hub's model info response we need
type hubModelInfo struct {
	Siblings []struct {
		RFilename string `json:"rfilename"`
	} `json:"siblings"`
}

// Manager makes sure the fine-tuned embedding model sits in the cache dir in a loadable state.
type Manager struct {
	cfg    config.AssetConfig
	client *http.Client
}

func NewManager(cfg config.AssetConfig, client *http.Client) *Manager {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Minute}
	}
	return &Manager{cfg: cfg, client: client}
}

// Ensure downloads the snapshot when the weights file is missing, then repairs config.json.
// Download failures are fatal; repair failures are only logged.
func (m *Manager) Ensure(ctx context.Context) error {
	if m.cfg.RepoID == "" {
		log.Info().Msg("No model repo configured, skipping asset check")
		return nil
	}

	weights := filepath.Join(m.cfg.CacheDir, constants.ModelWeightsFile)
	if !utils.FileExists(weights) {
		log.Info().Str("repo", m.cfg.RepoID).Str("dir", m.cfg.CacheDir).Msg("Downloading fine-tuned model")
		start := time.Now()
		if err := m.download(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrAssetAcquisition, err)
		}
		log.Info().Dur("took", time.Since(start)).Msg("Model downloaded")
	}

	if err := RepairConfig(filepath.Join(m.cfg.CacheDir, constants.ModelConfigFile)); err != nil {
		log.Warn().Err(err).Msg("Config repair failed")
	}
	return nil
}

func (m *Manager) download(ctx context.Context) error {
	files, err := m.listFiles(ctx)
	if err != nil {
		return err
	}
	for _, name := range files {
		if m.ignored(name) {
			log.Debug().Str("file", name).Msg("Skipping ignored file")
			continue
		}
		if err := m.fetch(ctx, name); err != nil {
			return fmt.Errorf("download %s: %w", name, err)
		}
	}
	return nil
}

func (m *Manager) listFiles(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/api/models/%s/revision/main", m.cfg.Endpoint, m.cfg.RepoID)
	resp, err := utils.MakeHeadersRequest(ctx, http.MethodGet, url, nil, m.client, m.authHeader())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model info returned status %d", resp.StatusCode)
	}

	var info hubModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode model info: %w", err)
	}
	files := make([]string, 0, len(info.Siblings))
	for _, s := range info.Siblings {
		files = append(files, s.RFilename)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("repo %s lists no files", m.cfg.RepoID)
	}
	return files, nil
}

func (m *Manager) fetch(ctx context.Context, name string) error {
	clean := path.Clean(name)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("refusing path outside cache dir")
	}

	url := fmt.Sprintf("%s/%s/resolve/main/%s", m.cfg.Endpoint, m.cfg.RepoID, clean)
	resp, err := utils.MakeHeadersRequest(ctx, http.MethodGet, url, nil, m.client, m.authHeader())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return utils.SaveFileAtomic(filepath.Join(m.cfg.CacheDir, filepath.FromSlash(clean)), resp.Body)
}

func (m *Manager) ignored(name string) bool {
	for _, pattern := range m.cfg.IgnorePatterns {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
		if ok, _ := path.Match(pattern, path.Base(name)); ok {
			return true
		}
	}
	return false
}

func (m *Manager) authHeader() utils.Header {
	if m.cfg.Token == "" {
		return utils.Header{Key: "Authorization"}
	}
	return utils.Header{Key: "Authorization", Value: "Bearer " + m.cfg.Token}
}

// RepairConfig adds the model_type the sentence-transformers loader needs when the upload left it out.
func RepairConfig(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}
	var cfg map[string]any
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse %s: %w", configPath, err)
	}
	if _, ok := cfg["model_type"]; ok {
		return nil
	}

	log.Info().Str("path", configPath).Msg("Injecting missing model_type into config")
	cfg["model_type"] = constants.ModelType
	fixed, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return utils.SaveFileAtomic(configPath, bytes.NewReader(fixed))
}
