// Package autoload configures the global logger from the environment on
// import. Blank-import it from main.
package autoload

import (
	configx "github.com/tanpawarit/orbita/pkg/config"
	logx "github.com/tanpawarit/orbita/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
