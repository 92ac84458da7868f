/*
Package log provides structured logging for ledgerstore using zerolog.

It wraps zerolog with a global logger configured once at startup
(Init), component-scoped child loggers, and helpers scoped to the
indexing domain: deployment, block, and entity-type fields, so a
single log line can be grepped by the deployment or block it came
from without every call site building its own zerolog context.
*/
package log
