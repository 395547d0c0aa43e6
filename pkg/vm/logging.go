package vm

import "go.uber.org/zap"

// zapErr is a one-line wrapper so call sites elsewhere in the package
// don't need to import zap just to log an error field.
func zapErr(err error) zap.Field { return zap.Error(err) }
