// Package log builds the irscrape logger on top of the standard slog
// package.
//
// A crawl logs to two places at once: the terminal, which shows warnings
// (or everything with --verbose), and a timestamped text file under the
// log directory, which records every info event. FanoutHandler dispatches
// each record to both handlers according to their own levels.
//
// # Usage
//
//	f, err := log.OpenLogFile("logging", time.Now())
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//	logger := log.NewLogger(os.Stderr, verbose, f)
//	slog.SetDefault(logger)
package log
