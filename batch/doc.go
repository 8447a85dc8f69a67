// Package batch drives stack-pointer analysis over a corpus of modules.
//
// Run hands each file to a bounded pool of workers. Workers own their file
// from read to record; finished records travel over a channel to a single
// collecting goroutine, which is the only writer of the result map.
package batch
