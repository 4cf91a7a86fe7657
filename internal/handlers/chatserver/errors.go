package chatserver

import "errors"

// ErrUnknownCommand 表示收到了无法识别的命令类型。
var ErrUnknownCommand = errors.New("unknown command")
