// Package scan loads card documents from a directory and resolves their
// identity and workflow assignment.
//
// Scanning runs stages 1-4 of the pipeline: walk and parse candidate files,
// classify them as cards or not, resolve card_id and flow_name through the
// ordered fallback chains, extract route targets from the action list, and
// partition the resolved cards into flow groups.
//
// Per-file work is a pure function of one file's bytes, so files are parsed
// concurrently; results merge in relative-path order to keep the pipeline
// deterministic regardless of filesystem iteration order.
package scan
