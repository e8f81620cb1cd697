package audio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/jonas747/ogg"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

var (
	// ErrEncodingFailed is returned when the encode pipeline fails to start
	ErrEncodingFailed = errors.New("audio encoding failed")
	// ErrAlreadyPlaying is returned when playback is already in progress
	ErrAlreadyPlaying = errors.New("already playing")
)

// Encoder turns a playable source into 20ms Opus frames for Discord
type Encoder struct {
	ytDlpPath string
	logger    *logger.Logger
}

// NewEncoder creates an encoder. ytDlpPath is the binary used for YouTube
// sources.
func NewEncoder(ytDlpPath string, log *logger.Logger) *Encoder {
	if ytDlpPath == "" {
		ytDlpPath = "yt-dlp"
	}
	return &Encoder{ytDlpPath: ytDlpPath, logger: log}
}

// EncodeOptions contains encoding parameters
type EncodeOptions struct {
	Bitrate     int    // kbps
	Application string // audio, voip, or lowdelay
	BufferSize  int    // frame channel capacity
}

// DefaultEncodeOptions returns the standard music settings
func DefaultEncodeOptions() *EncodeOptions {
	return &EncodeOptions{
		Bitrate:     128,
		Application: "audio",
		BufferSize:  1024,
	}
}

// Encode starts the pipeline for a source and returns a frame channel and an
// error channel. Both close when the pipeline ends.
//
// Local files are fed to FFmpeg directly. YouTube watch URLs go through a
// yt-dlp pipe, which avoids the 403 responses FFmpeg gets on googlevideo
// URLs. Everything else (radio streams, plain HTTP audio) is handed to
// FFmpeg with reconnect flags.
func (e *Encoder) Encode(source string, options *EncodeOptions) (<-chan []byte, <-chan error) {
	if options == nil {
		options = DefaultEncodeOptions()
	}

	frames := make(chan []byte, options.BufferSize)
	errs := make(chan error, 1)

	go e.run(source, options, frames, errs)
	return frames, errs
}

func (e *Encoder) run(source string, options *EncodeOptions, frames chan []byte, errs chan error) {
	defer close(frames)
	defer close(errs)

	var (
		ffmpegCmd *exec.Cmd
		feeder    *exec.Cmd
	)

	switch {
	case isLocalFile(source):
		e.logger.WithField("file", source).Info("Encoding local file")
		ffmpegCmd = exec.Command("ffmpeg", e.ffmpegArgs(source, options, false)...)

	case isYouTubeURL(source):
		e.logger.WithField("url", truncate(source, 80)).Info("Starting yt-dlp to FFmpeg pipeline")
		feeder = exec.Command(e.ytDlpPath,
			"-f", "bestaudio/best",
			"-o", "-",
			"--no-playlist",
			"--no-check-certificate",
			"--geo-bypass",
			"--quiet",
			"--no-warnings",
			source,
		)
		ffmpegCmd = exec.Command("ffmpeg", e.ffmpegArgs("pipe:0", options, false)...)

	default:
		e.logger.WithField("url", truncate(source, 80)).Info("Encoding remote stream")
		ffmpegCmd = exec.Command("ffmpeg", e.ffmpegArgs(source, options, true)...)
	}

	if feeder != nil {
		feederOut, err := feeder.StdoutPipe()
		if err != nil {
			errs <- fmt.Errorf("%w: feeder stdout: %v", ErrEncodingFailed, err)
			return
		}
		e.drainStderr(feeder, "yt-dlp")
		ffmpegCmd.Stdin = feederOut

		if err := feeder.Start(); err != nil {
			errs <- fmt.Errorf("%w: start yt-dlp: %v", ErrEncodingFailed, err)
			return
		}
		defer func() {
			if feeder.Process != nil {
				feeder.Process.Kill()
				feeder.Wait()
			}
		}()
	}

	ffmpegOut, err := ffmpegCmd.StdoutPipe()
	if err != nil {
		errs <- fmt.Errorf("%w: ffmpeg stdout: %v", ErrEncodingFailed, err)
		return
	}
	e.drainStderr(ffmpegCmd, "ffmpeg")

	if err := ffmpegCmd.Start(); err != nil {
		errs <- fmt.Errorf("%w: start ffmpeg: %v", ErrEncodingFailed, err)
		return
	}
	defer func() {
		if ffmpegCmd.Process != nil {
			ffmpegCmd.Process.Kill()
			ffmpegCmd.Wait()
		}
	}()

	e.decodeFrames(ffmpegOut, frames, errs)
}

// decodeFrames reads the OGG container off FFmpeg and paces Opus packets at
// the 20ms playback rate so the frame channel cannot run far ahead
func (e *Encoder) decodeFrames(r io.Reader, frames chan []byte, errs chan error) {
	decoder := ogg.NewPacketDecoder(ogg.NewDecoder(r))

	const frameInterval = 20 * time.Millisecond
	start := time.Now()
	frameCount := 0

	// Opus header and comment packets are not audio
	skip := 2

	for {
		packet, _, err := decoder.Decode()
		if err != nil {
			if err == io.EOF {
				e.logger.WithField("frames", frameCount).Info("Encoding completed")
				return
			}
			if frameCount > 0 {
				e.logger.WithError(err).WithField("frames", frameCount).Warn("Encoding ended early")
				return
			}
			errs <- err
			return
		}

		if skip > 0 {
			skip--
			continue
		}
		if len(packet) == 0 {
			continue
		}

		frameCount++
		next := start.Add(time.Duration(frameCount) * frameInterval)
		if wait := time.Until(next); wait > 0 {
			time.Sleep(wait)
		}
		frames <- packet
	}
}

func (e *Encoder) ffmpegArgs(input string, options *EncodeOptions, reconnect bool) []string {
	args := []string{}
	if reconnect {
		args = append(args,
			"-reconnect", "1",
			"-reconnect_at_eof", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "2",
		)
	}
	args = append(args,
		"-i", input,
		"-map", "0:a",
		"-acodec", "libopus",
		"-f", "ogg",
		"-compression_level", "5",
		"-ar", "48000",
		"-ac", "2",
		"-b:a", fmt.Sprintf("%d", options.Bitrate*1000),
		"-application", options.Application,
		"-frame_duration", "20",
		"-loglevel", "error",
		"pipe:1",
	)
	return args
}

func (e *Encoder) drainStderr(cmd *exec.Cmd, name string) {
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return
	}
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			e.logger.WithField(name, scanner.Text()).Debug("Pipeline output")
		}
	}()
}

func isLocalFile(source string) bool {
	if strings.Contains(source, "://") {
		return false
	}
	info, err := os.Stat(source)
	return err == nil && !info.IsDir()
}

func isYouTubeURL(source string) bool {
	return strings.Contains(source, "youtube.com/") || strings.Contains(source, "youtu.be/")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
