package main

import (
	"github.com/wudi/ember/econtext"
	"github.com/wudi/ember/modules/collectionsm"
	"github.com/wudi/ember/modules/corem"
	"github.com/wudi/ember/modules/futurem"
)

// buildRuntimeContext registers every host module this repository ships
// (§4.5) into a fresh Context and freezes it, the embedding setup step
// every demo program and the REPL share. One RuntimeContext is plenty for
// the whole process: it is immutable once frozen and safe to hand to as
// many Vm instances as the demos spin up (§3.4).
func buildRuntimeContext() (*econtext.RuntimeContext, error) {
	ctx := econtext.NewContext()
	if err := corem.Register(ctx); err != nil {
		return nil, err
	}
	if err := collectionsm.Register(ctx); err != nil {
		return nil, err
	}
	if err := futurem.Register(ctx); err != nil {
		return nil, err
	}
	return ctx.Freeze(), nil
}
