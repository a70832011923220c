// Package watch re-runs validation when schema or dataset files change.
//
// A Watcher follows the configured files and directories with fsnotify,
// filters events by extension, and calls its ChangeFunc once a burst of
// writes has settled for the debounce interval.
package watch
