package infra

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	leopard "github.com/Picovoice/leopard/binding/go/v2"

	"github.com/zd4y/audionotes/internal/ports"
)

const leopardModelBaseURL = "https://raw.githubusercontent.com/Picovoice/leopard/master/lib/common"

// PicovoiceLeopard runs speech to text on the local machine with the Leopard
// engine. Language models are downloaded once into modelDir and reused. The
// engine reads files, so each clip is materialized in a temp dir and remuxed
// to ogg with ffmpeg first (leopard does not accept webm).
type PicovoiceLeopard struct {
	accessKey string
	modelDir  string
	baseURL   string
	client    *http.Client

	mu sync.Mutex // serializes model downloads
}

// NewPicovoiceLeopard fetches the models for the given languages up front so
// the first transcription does not pay for the download.
func NewPicovoiceLeopard(ctx context.Context, accessKey, modelDir string, languages ...string) (*PicovoiceLeopard, error) {
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}
	s := &PicovoiceLeopard{
		accessKey: accessKey,
		modelDir:  modelDir,
		baseURL:   leopardModelBaseURL,
		client:    http.DefaultClient,
	}
	for _, language := range languages {
		if _, err := s.ensureModel(ctx, language); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *PicovoiceLeopard) Transcribe(ctx context.Context, audio io.Reader, language string) (string, error) {
	modelPath, err := s.ensureModel(ctx, language)
	if err != nil {
		return "", err
	}

	tmpDir, err := os.MkdirTemp("", "audionotes-leopard-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	webmPath := filepath.Join(tmpDir, "audio"+ports.AudioFileExtension)
	f, err := os.Create(webmPath)
	if err != nil {
		return "", fmt.Errorf("create temp audio file: %w", err)
	}
	if _, err := io.Copy(f, audio); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write temp audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp audio file: %w", err)
	}

	oggPath := filepath.Join(tmpDir, "audio.ogg")
	if err := s.repackage(ctx, webmPath, oggPath); err != nil {
		return "", err
	}

	engine := leopard.NewLeopard(s.accessKey)
	engine.ModelPath = modelPath
	if err := engine.Init(); err != nil {
		return "", fmt.Errorf("leopard init (%v): %w", err, ports.ErrEngineError)
	}
	defer engine.Delete()

	transcript, _, err := engine.ProcessFile(oggPath)
	if err != nil {
		return "", fmt.Errorf("leopard process (%v): %w", err, ports.ErrEngineError)
	}
	return transcript, nil
}

// repackage rewrites the webm container as ogg without reencoding the opus
// stream.
func (s *PicovoiceLeopard) repackage(ctx context.Context, in, out string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-loglevel", "error", "-i", in, "-c:a", "copy", out)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if len(output) > 0 {
			log.Printf("[leopard][STDERR] %s", output)
		}
		return fmt.Errorf("ffmpeg remux (%v): %w", err, ports.ErrRepackageFailed)
	}
	return nil
}

// ensureModel returns the path of the model file for language, downloading it
// on first use. Models are published per language, english is the unsuffixed
// default file.
func (s *PicovoiceLeopard) ensureModel(ctx context.Context, language string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := "leopard_params.pv"
	if language != "en" {
		name = fmt.Sprintf("leopard_params_%s.pv", language)
	}
	path := filepath.Join(s.modelDir, name)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	log.Printf("[leopard][MODEL] downloading %s", name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+name, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download model %s (%v): %w", name, err, ports.ErrModelUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download model %s (http %d): %w", name, resp.StatusCode, ports.ErrModelUnavailable)
	}

	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create model file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write model %s (%v): %w", name, err, ports.ErrModelUnavailable)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("publish model file: %w", err)
	}
	return path, nil
}
