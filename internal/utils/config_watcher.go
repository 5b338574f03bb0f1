package utils

import (
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// WatchExtraction watches the config file and calls onChange with the fresh
// extraction section whenever it is rewritten. Only the extraction tuning is
// hot-reloadable; everything else needs a restart. The returned func stops
// the watcher.
func WatchExtraction(filename string, logger zerolog.Logger, onChange func(ExtractionConfig)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filename); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				config, err := LoadConfig(filename)
				if err != nil {
					logger.Warn().Err(err).Msg("Ignoring config change that failed to load")
					continue
				}
				logger.Info().Str("file", filename).Msg("Reloading extraction tuning")
				onChange(config.Extraction)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn().Err(err).Msg("Config watcher error")
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
