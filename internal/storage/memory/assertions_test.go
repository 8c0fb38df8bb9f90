package memory_test

import (
	"github.com/tinoosan/schoolfin/internal/service/balance"
	"github.com/tinoosan/schoolfin/internal/service/contract"
	"github.com/tinoosan/schoolfin/internal/service/obligation"
	"github.com/tinoosan/schoolfin/internal/service/registry"
	"github.com/tinoosan/schoolfin/internal/service/settlement"
	"github.com/tinoosan/schoolfin/internal/storage"
	"github.com/tinoosan/schoolfin/internal/storage/memory"
)

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ registry.Repo      = (*memory.Store)(nil)
	_ registry.Writer    = (*memory.Store)(nil)
	_ balance.Repo       = (*memory.Store)(nil)
	_ obligation.Repo    = (*memory.Store)(nil)
	_ obligation.Writer  = (*memory.Store)(nil)
	_ settlement.Repo    = (*memory.Store)(nil)
	_ contract.Repo      = (*memory.Store)(nil)
	_ storage.TxBeginner = (*memory.Store)(nil)
)
