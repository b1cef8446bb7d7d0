package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/vsariola/ptcop"
	"github.com/vsariola/ptcop/meter"
	"github.com/vsariola/ptcop/oto"
	"github.com/vsariola/ptcop/synth"
	"github.com/vsariola/ptcop/version"
	"github.com/vsariola/ptcop/voice"
)

var projectExtensions = []string{".ptcop", ".pttune"}

func main() {
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the current working directory.")
	play := flag.Bool("p", false, "Play the input songs (default behaviour when no other output is defined).")
	rawOut := flag.Bool("r", false, "Output the rendered song as a .raw file of interleaved 16-bit little-endian samples.")
	wavOut := flag.Bool("w", false, "Output the rendered song as a 16-bit stereo .wav file.")
	yamlOut := flag.Bool("y", false, "Output a summary of the project as a .yml file.")
	jsonOut := flag.Bool("j", false, "Output a summary of the project as a .json file.")
	measure := flag.Bool("m", false, "Print the loudness and true peak levels of the rendered song.")
	weighting := flag.String("weighting", defaultConfig.Weighting, "Loudness weighting used by -m: k, a, c or none.")
	loop := flag.Bool("l", false, "Loop the song from its repeat point. Renders to files need -t to stop.")
	start := flag.Duration("start", 0, "Start rendering from this position, e.g. 1m30s.")
	length := flag.Duration("t", 0, "Stop after rendering this long. Zero renders until the song ends.")
	fadeIn := flag.Duration("fadein", 0, "Fade in over this duration.")
	fadeOut := flag.Duration("fadeout", 0, "Fade out over this duration before the end.")
	mute := flag.String("mute", "", "Comma separated list of tracks to mute, counting from 0.")
	configFile := flag.String("config", "", "Read defaults for the playback settings from a .yml file.")
	debug := flag.Bool("d", false, "Log the decoding of each chunk.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	cfg := defaultConfig
	if *configFile != "" {
		var err error
		if cfg, err = loadConfig(*configFile); err != nil {
			logger.Error("could not load config", "err", err)
			os.Exit(1)
		}
	}
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "o":
			cfg.Directory = *directory
		case "weighting":
			cfg.Weighting = *weighting
		case "l":
			cfg.Loop = *loop
		case "start":
			cfg.Start = *start
		case "t":
			cfg.Length = *length
		case "fadein":
			cfg.FadeIn = *fadeIn
		case "fadeout":
			cfg.FadeOut = *fadeOut
		case "mute":
			cfg.Mute, flagErr = parseTracks(*mute)
		}
	})
	if flagErr == nil {
		flagErr = cfg.validate()
	}
	weight, err := meter.ParseWeighting(cfg.Weighting)
	if flagErr == nil {
		flagErr = err
	}
	if flagErr != nil {
		logger.Error("invalid arguments", "err", flagErr)
		os.Exit(1)
	}
	if !*rawOut && !*wavOut && !*yamlOut && !*jsonOut && !*measure {
		*play = true // if the user gives nothing to output, then the default behaviour is just to play the file
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	var audioContext ptcop.AudioContext
	if *play {
		var err error
		audioContext, err = oto.NewContext()
		if err != nil {
			logger.Error("could not acquire oto AudioContext", "err", err)
			os.Exit(1)
		}
		defer audioContext.Close()
	}
	decoder := &ptcop.Decoder{Vorbis: voice.OggVorbis{}, Logger: logger}
	var stdoutMutex sync.Mutex
	process := func(filename string) error {
		log := logger.With("file", filename)
		output := func(extension string, write func(w io.Writer) error) error {
			if *stdout {
				stdoutMutex.Lock()
				defer stdoutMutex.Unlock()
				return write(os.Stdout)
			}
			_, name := filepath.Split(filename)
			dir := cfg.Directory
			if dir == "" {
				var err error
				dir, err = os.Getwd()
				if err != nil {
					return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
				}
			}
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return fmt.Errorf("could not create output directory %v: %v", dir, err)
			}
			name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
			f, err := os.Create(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("could not create file %v: %v", name, err)
			}
			defer f.Close()
			if err := write(f); err != nil {
				return fmt.Errorf("could not write file %v: %v", f.Name(), err)
			}
			if info, err := f.Stat(); err == nil {
				log.Info("wrote file", "output", f.Name(), "size", humanize.Bytes(uint64(info.Size())))
			}
			return f.Close()
		}
		f, err := os.Open(filename)
		if err != nil {
			return fmt.Errorf("could not open file %v: %v", filename, err)
		}
		project, err := decoder.Read(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("could not decode %v: %w", filename, err)
		}
		summary := project.Summary()
		log.Info("decoded project", "name", summary.Name, "duration", formatDuration(summary.Duration), "tracks", len(summary.Tracks), "voices", len(summary.Voices))
		if *yamlOut {
			if err := output(".yml", func(w io.Writer) error { return yaml.NewEncoder(w).Encode(summary) }); err != nil {
				return fmt.Errorf("error outputting .yml file: %v", err)
			}
		}
		if *jsonOut {
			if err := output(".json", func(w io.Writer) error {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}); err != nil {
				return fmt.Errorf("error outputting .json file: %v", err)
			}
		}
		prepare := func(loop bool) (*synth.Player, error) {
			p, err := synth.NewPlayer(project)
			if err != nil {
				return nil, err
			}
			for _, t := range cfg.Mute {
				if !p.SetTrackMuted(t, true) {
					log.Warn("cannot mute track", "track", t)
				}
			}
			p.SetLoop(loop)
			if !p.Seek(frames(cfg.Start)) {
				return nil, fmt.Errorf("start position %v is past the end of the song", cfg.Start)
			}
			if cfg.FadeIn > 0 {
				p.SetFade(true, cfg.FadeIn)
			}
			return p, nil
		}
		if *rawOut || *wavOut || *measure {
			loop := cfg.Loop
			if loop && cfg.Length == 0 {
				log.Warn("not looping a render without a length")
				loop = false
			}
			p, err := prepare(loop)
			if err != nil {
				return err
			}
			var sink sinks
			rendered := &collector{}
			if *rawOut || *wavOut {
				sink = append(sink, rendered)
			}
			m := meter.New(weight, true)
			if *measure {
				sink = append(sink, m)
			}
			n, err := stream(ctx, p, sink, frames(cfg.Length), cfg.FadeOut)
			p.Close()
			sink.Close()
			if err != nil {
				return fmt.Errorf("rendering failed: %w", err)
			}
			log.Debug("rendered", "frames", n)
			if *rawOut {
				if err := output(".raw", rendered.buffer.WriteRaw); err != nil {
					return fmt.Errorf("error outputting .raw file: %v", err)
				}
			}
			if *wavOut {
				if *stdout {
					return errors.New("cannot write a .wav file to standard output")
				}
				if err := output(".wav", func(w io.Writer) error { return rendered.buffer.Wav(w.(io.WriteSeeker)) }); err != nil {
					return fmt.Errorf("error outputting .wav file: %v", err)
				}
			}
			if *measure {
				stdoutMutex.Lock()
				printLevels(filename, weight, m.Result())
				stdoutMutex.Unlock()
			}
		}
		if *play {
			p, err := prepare(cfg.Loop)
			if err != nil {
				return err
			}
			defer p.Close()
			out := audioContext.Output()
			log.Info("playing", "loop", cfg.Loop)
			_, err = stream(ctx, p, out, frames(cfg.Length), cfg.FadeOut)
			if err := out.Close(); err != nil {
				log.Warn("could not close audio output", "err", err)
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("playback failed: %w", err)
			}
		}
		return nil
	}
	var files []string
	for _, param := range flag.Args() {
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			for _, ext := range projectExtensions {
				matches, err := filepath.Glob(filepath.Join(param, "*"+ext))
				if err != nil {
					logger.Error("could not glob the path", "path", param, "err", err)
					continue
				}
				files = append(files, matches...)
			}
		} else {
			files = append(files, param)
		}
	}
	var g errgroup.Group
	if *play {
		g.SetLimit(1) // one song at a time through the speakers
	} else {
		g.SetLimit(runtime.NumCPU())
	}
	for _, file := range files {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := process(file); err != nil {
				logger.Error("could not process file", "file", file, "err", err, "code", int(ptcop.CodeOf(err)))
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		stop()
		os.Exit(1)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return "0s"
	}
	return durafmt.Parse(d.Round(time.Millisecond)).LimitFirstN(2).String()
}

func printLevels(filename string, w meter.Weighting, r meter.Result) {
	fmt.Printf("%v:\n", filename)
	fmt.Printf("  integrated loudness (%v): %v\n", w, r.Loudness[meter.LoudnessIntegrated])
	fmt.Printf("  max momentary loudness: %v\n", r.Loudness[meter.LoudnessMaxMomentary])
	fmt.Printf("  max short-term loudness: %v\n", r.Loudness[meter.LoudnessMaxShortTerm])
	fmt.Printf("  true peak: %v / %v\n", r.Peaks[meter.PeakIntegrated][0], r.Peaks[meter.PeakIntegrated][1])
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] [path ...]\n\nPlays or renders pxtone projects (.ptcop, .pttune). Directories are searched for projects.\n", os.Args[0])
	flag.PrintDefaults()
}
