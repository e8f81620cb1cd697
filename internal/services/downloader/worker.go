package downloader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

var (
	// ErrToolNotFound is returned when the download binary is not installed
	ErrToolNotFound = errors.New("yt-dlp not found in PATH")
)

// Request is the typed input of a single download job
type Request struct {
	VideoURL string `json:"videoUrl"`
	FilePath string `json:"filePath"`
}

// Result is the success response of a download job
type Result struct {
	FilePath string `json:"filePath"`
}

// Failure is the typed failure response of a download job
type Failure struct {
	VideoURL string `json:"videoUrl"`
	Message  string `json:"message"`
	Err      error  `json:"error,omitempty"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("download of %s failed: %s", f.VideoURL, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Progress describes download advancement. Observability only; correctness
// never depends on these events arriving.
type Progress struct {
	Percent float64
	Size    string
	Speed   string
	ETA     string
}

// PlaylistEntry is one item of a flat playlist enumeration
type PlaylistEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

var progressPattern = regexp.MustCompile(`\[download\]\s+(\d+(?:\.\d+)?)%\s+of\s+~?(\S+)(?:\s+at\s+(\S+))?(?:\s+ETA\s+(\S+))?`)

// Worker runs one external yt-dlp invocation per job. The process is started
// under the caller's context, so cancelling or timing out the context
// forcibly terminates the tool; a hung download can never outlive the
// enclosing resolution call.
type Worker struct {
	binPath       string
	retries       int
	socketTimeout int // seconds
	logger        *logger.Logger
	onProgress    func(Progress)
}

// NewWorker resolves the downloader binary and builds a worker
func NewWorker(binPath string, log *logger.Logger) (*Worker, error) {
	resolved, err := exec.LookPath(binPath)
	if err != nil {
		return nil, fmt.Errorf("%w: please install yt-dlp", ErrToolNotFound)
	}

	log.WithField("ytdlp_path", resolved).Info("Download worker initialized")
	return &Worker{
		binPath:       resolved,
		retries:       3,
		socketTimeout: 10,
		logger:        log,
	}, nil
}

// SetProgressFunc installs a progress observer
func (w *Worker) SetProgressFunc(f func(Progress)) {
	w.onProgress = f
}

// Run downloads the request's URL as audio to the request's output path.
// Exit code 0 and a non-empty output file are both required for success.
func (w *Worker) Run(ctx context.Context, req Request) (*Result, error) {
	w.logger.WithFields(map[string]interface{}{
		"url":  req.VideoURL,
		"dest": req.FilePath,
	}).Info("Starting audio download...")

	args := []string{
		"--newline",
		"--no-playlist",
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "m4a",
		"--embed-metadata",
		"--retries", strconv.Itoa(w.retries),
		"--socket-timeout", strconv.Itoa(w.socketTimeout),
		"--no-check-certificate",
		"--geo-bypass",
		"--output", req.FilePath,
		req.VideoURL,
	}

	cmd := exec.CommandContext(ctx, w.binPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &Failure{VideoURL: req.VideoURL, Message: "failed to open stdout pipe", Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &Failure{VideoURL: req.VideoURL, Message: "failed to start yt-dlp", Err: err}
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		w.reportProgress(scanner.Text())
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			// CommandContext already killed the process
			return nil, &Failure{VideoURL: req.VideoURL, Message: "download timed out", Err: ctx.Err()}
		}
		return nil, &Failure{
			VideoURL: req.VideoURL,
			Message:  strings.TrimSpace(tail(stderr.String(), 500)),
			Err:      err,
		}
	}

	info, err := os.Stat(req.FilePath)
	if err != nil {
		return nil, &Failure{VideoURL: req.VideoURL, Message: "output file missing after download", Err: err}
	}
	if info.Size() == 0 {
		return nil, &Failure{VideoURL: req.VideoURL, Message: "output file is empty"}
	}

	w.logger.WithFields(map[string]interface{}{
		"dest":  req.FilePath,
		"bytes": info.Size(),
	}).Info("Download completed")
	return &Result{FilePath: req.FilePath}, nil
}

// Enumerate lists a playlist's entries without downloading anything
func (w *Worker) Enumerate(ctx context.Context, playlistURL string) ([]PlaylistEntry, error) {
	args := []string{
		"--dump-json",
		"--flat-playlist",
		"--no-check-certificate",
		"--geo-bypass",
		playlistURL,
	}

	cmd := exec.CommandContext(ctx, w.binPath, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, &Failure{VideoURL: playlistURL, Message: "playlist enumeration failed", Err: err}
	}

	var entries []PlaylistEntry
	for _, line := range strings.Split(string(output), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry PlaylistEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			w.logger.WithError(err).Warn("Failed to parse playlist entry")
			continue
		}
		if entry.URL == "" && entry.ID != "" {
			entry.URL = "https://www.youtube.com/watch?v=" + entry.ID
		}
		entries = append(entries, entry)
	}

	w.logger.WithField("count", len(entries)).Info("Playlist enumerated")
	return entries, nil
}

func (w *Worker) reportProgress(line string) {
	if w.onProgress == nil {
		return
	}
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return
	}

	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return
	}
	w.onProgress(Progress{
		Percent: percent,
		Size:    m[2],
		Speed:   m[3],
		ETA:     m[4],
	})
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
