package infra

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zd4y/audionotes/internal/ports"
)

const (
	azureAPIVersion = "2021-08-06"

	// Blocks uploaded per Put Block call; pages fetched per ranged Get.
	azureBlockSize = 4 * 1024 * 1024
	azurePageSize  = 2 * 1024 * 1024
)

// AzureAudioStorage talks to the Azure Blob REST API directly. Blobs are
// written as block lists (the blob becomes visible only when the list is
// committed) and read back as ranged pages exposed through one reader.
type AzureAudioStorage struct {
	account   string
	key       []byte
	container string
	endpoint  string
	client    *http.Client

	blockSize int
	pageSize  int
}

func NewAzureAudioStorage(account, accessKey, container string) (*AzureAudioStorage, error) {
	key, err := base64.StdEncoding.DecodeString(accessKey)
	if err != nil {
		return nil, fmt.Errorf("decode azure access key: %w", err)
	}
	return &AzureAudioStorage{
		account:   account,
		key:       key,
		container: container,
		endpoint:  fmt.Sprintf("https://%s.blob.core.windows.net", account),
		client:    http.DefaultClient,
		blockSize: azureBlockSize,
		pageSize:  azurePageSize,
	}, nil
}

func (s *AzureAudioStorage) Get(ctx context.Context, audioID int) (io.ReadCloser, error) {
	r := &blobPageReader{storage: s, ctx: ctx, audioID: audioID}
	if err := r.fetchPage(); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *AzureAudioStorage) Store(ctx context.Context, audioID int, r io.Reader) (int64, error) {
	var (
		blockIDs []string
		total    int64
	)
	buf := make([]byte, s.blockSize)
	for i := 0; ; i++ {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			blockID := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%08X", i)))
			if perr := s.putBlock(ctx, audioID, blockID, buf[:n]); perr != nil {
				return total, perr
			}
			blockIDs = append(blockIDs, blockID)
			total += int64(n)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return total, fmt.Errorf("read audio stream: %w", err)
		}
	}
	if err := s.putBlockList(ctx, audioID, blockIDs); err != nil {
		return total, err
	}
	return total, nil
}

func (s *AzureAudioStorage) Delete(ctx context.Context, audioID int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.blobURL(audioID, nil), nil)
	if err != nil {
		return err
	}
	s.authorize(req, 0)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("azure delete blob: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("audio %d: %w", audioID, ports.ErrNotFound)
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("azure delete blob http %d: %s", resp.StatusCode, body)
	}
}

func (s *AzureAudioStorage) putBlock(ctx context.Context, audioID int, blockID string, chunk []byte) error {
	query := url.Values{"comp": {"block"}, "blockid": {blockID}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.blobURL(audioID, query), bytes.NewReader(chunk))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	s.authorize(req, len(chunk))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("azure put block: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("azure put block http %d: %s", resp.StatusCode, body)
	}
	return nil
}

type azureBlockList struct {
	XMLName xml.Name `xml:"BlockList"`
	Latest  []string `xml:"Latest"`
}

func (s *AzureAudioStorage) putBlockList(ctx context.Context, audioID int, blockIDs []string) error {
	encoded, err := xml.Marshal(azureBlockList{Latest: blockIDs})
	if err != nil {
		return fmt.Errorf("encode block list: %w", err)
	}
	body := append([]byte(xml.Header), encoded...)

	query := url.Values{"comp": {"blocklist"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.blobURL(audioID, query), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("x-ms-blob-content-type", ports.AudioMimetype)
	s.authorize(req, len(body))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("azure put block list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("azure put block list http %d: %s", resp.StatusCode, respBody)
	}
	return nil
}

func (s *AzureAudioStorage) blobName(audioID int) string {
	return fmt.Sprintf("%d%s", audioID, ports.AudioFileExtension)
}

func (s *AzureAudioStorage) blobURL(audioID int, query url.Values) string {
	u := fmt.Sprintf("%s/%s/%s", s.endpoint, s.container, s.blobName(audioID))
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// authorize signs the request with the SharedKey scheme. Call it after all
// headers are set: x-ms-* headers and the content type are part of the
// signature.
func (s *AzureAudioStorage) authorize(req *http.Request, contentLength int) {
	req.Header.Set("x-ms-date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("x-ms-version", azureAPIVersion)

	length := ""
	if contentLength > 0 {
		length = strconv.Itoa(contentLength)
	}
	stringToSign := strings.Join([]string{
		req.Method,
		"", // Content-Encoding
		"", // Content-Language
		length,
		"", // Content-MD5
		req.Header.Get("Content-Type"),
		"", // Date (x-ms-date is signed as a canonical header)
		"", // If-Modified-Since
		"", // If-Match
		"", // If-None-Match
		"", // If-Unmodified-Since
		"", // Range (ranged reads send x-ms-range)
		s.canonicalHeaders(req),
		s.canonicalResource(req),
	}, "\n")

	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(stringToSign))
	signature := base64.StdEncoding.EncodeToString(h.Sum(nil))
	req.Header.Set("Authorization", fmt.Sprintf("SharedKey %s:%s", s.account, signature))
}

func (s *AzureAudioStorage) canonicalHeaders(req *http.Request) string {
	var names []string
	for name := range req.Header {
		lower := strings.ToLower(name)
		if strings.HasPrefix(lower, "x-ms-") {
			names = append(names, lower)
		}
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, name+":"+req.Header.Get(name))
	}
	return strings.Join(lines, "\n")
}

func (s *AzureAudioStorage) canonicalResource(req *http.Request) string {
	var b strings.Builder
	b.WriteString("/" + s.account + req.URL.Path)

	query := req.URL.Query()
	names := make([]string, 0, len(query))
	for name := range query {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString("\n" + strings.ToLower(name) + ":" + strings.Join(query[name], ","))
	}
	return b.String()
}

// blobPageReader exposes a blob as one contiguous stream, fetching one
// fixed-size range at a time as the consumer reads.
type blobPageReader struct {
	storage *AzureAudioStorage
	ctx     context.Context
	audioID int

	offset int64
	page   []byte
	pos    int
	done   bool
}

func (r *blobPageReader) Read(p []byte) (int, error) {
	for r.pos >= len(r.page) {
		if r.done {
			return 0, io.EOF
		}
		if err := r.fetchPage(); err != nil {
			return 0, err
		}
	}
	n := copy(p, r.page[r.pos:])
	r.pos += n
	return n, nil
}

func (r *blobPageReader) Close() error { return nil }

func (r *blobPageReader) fetchPage() error {
	s := r.storage

	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, s.blobURL(r.audioID, nil), nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-ms-range", fmt.Sprintf("bytes=%d-%d", r.offset, r.offset+int64(s.pageSize)-1))
	s.authorize(req, 0)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("azure get blob: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent, http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("audio %d: %w", r.audioID, ports.ErrNotFound)
	case http.StatusRequestedRangeNotSatisfiable:
		// past the end of the blob, also a zero-byte blob
		r.page, r.pos, r.done = nil, 0, true
		return nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("azure get blob http %d: %s", resp.StatusCode, body)
	}

	page, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("azure get blob: %w", err)
	}
	r.page, r.pos = page, 0
	r.offset += int64(len(page))
	if len(page) < s.pageSize || resp.StatusCode == http.StatusOK {
		r.done = true
	}
	return nil
}
