package main

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/bins"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/models"
)

// parseHotkey maps an operator line to a command: q stops, anything else is
// tried as a profile key or name.
func parseHotkey(line string, registry *bins.Registry) (models.Command, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return models.Command{}, false
	}
	if strings.EqualFold(line, "q") {
		return models.Command{Action: models.CommandStop}, true
	}
	profile, err := registry.Resolve(line)
	if err != nil {
		return models.Command{}, false
	}
	return models.Command{Action: models.CommandSwitchBin, Bin: profile.Name}, true
}

// readHotkeys turns lines from r into commands. The reader goroutine lives as
// long as r does; stdin is never closed by us.
func readHotkeys(ctx context.Context, r io.Reader, registry *bins.Registry, log zerolog.Logger) <-chan models.Command {
	out := make(chan models.Command, 1)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			cmd, ok := parseHotkey(scanner.Text(), registry)
			if !ok {
				log.Warn().Str("input", scanner.Text()).Msg("unknown hotkey")
				continue
			}
			select {
			case out <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// mergeCommands fans several command channels into one. Nil inputs are
// skipped; the result closes when every input has closed.
func mergeCommands(ctx context.Context, inputs ...<-chan models.Command) <-chan models.Command {
	out := make(chan models.Command, 8)
	var wg sync.WaitGroup
	for _, in := range inputs {
		if in == nil {
			continue
		}
		wg.Add(1)
		go func(in <-chan models.Command) {
			defer wg.Done()
			for cmd := range in {
				select {
				case out <- cmd:
				case <-ctx.Done():
					return
				}
			}
		}(in)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
