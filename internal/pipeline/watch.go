package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/rohrwerk/callaudit/internal/call"
	"github.com/rohrwerk/callaudit/internal/correlate"
	"github.com/rohrwerk/callaudit/pkg/logger"
)

// secondarySuffix names the optional re-transcription sidecar: a call
// record dropped as <name>.json may carry <name>.words.json next to it.
const secondarySuffix = ".words.json"

// Watch processes call-record files dropped into dir until the context
// is cancelled. Each newly created *.json file is decoded and run
// through the full pipeline as a single-call batch; files that fail to
// decode are logged and skipped so one bad drop cannot stall the watch.
func (p *Pipeline) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	p.logger.Info("Watching for call records", logger.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			name := event.Name
			if !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, secondarySuffix) {
				continue
			}
			if err := p.processFile(ctx, name); err != nil {
				p.logger.Error("Failed to process call record",
					logger.String("path", name),
					logger.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Error("Watcher error", logger.Error(err))
		}
	}
}

// processFile runs one dropped call record, picking up the secondary
// transcription sidecar when present.
func (p *Pipeline) processFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rec, err := call.Decode(data)
	if err != nil {
		return err
	}

	input := Input{Record: rec}
	sidecar := strings.TrimSuffix(path, ".json") + secondarySuffix
	if wordsData, err := os.ReadFile(sidecar); err == nil {
		words, err := correlate.DecodeWords(wordsData)
		if err != nil {
			p.logger.Warn("Ignoring unreadable secondary transcription",
				logger.String("path", filepath.Base(sidecar)),
				logger.Error(err))
		} else {
			input.SecondaryWords = words
		}
	}

	_, err = p.Run(ctx, []Input{input})
	return err
}
