// Package audit dispatches authentication audit events to a sink.
//
// [Dispatcher] buffers events and forwards them from one goroutine. Sinks
// write them out: [ChannelSink] for tests, [JSONWriterSink] for line-delimited
// files, [SlogSink] for the service log. The engine decides which events to
// emit. This package never filters them.
package audit
