package postgres_test

import (
	"github.com/tinoosan/schoolfin/internal/service/balance"
	"github.com/tinoosan/schoolfin/internal/service/contract"
	"github.com/tinoosan/schoolfin/internal/service/obligation"
	"github.com/tinoosan/schoolfin/internal/service/registry"
	"github.com/tinoosan/schoolfin/internal/service/settlement"
	"github.com/tinoosan/schoolfin/internal/storage"
	"github.com/tinoosan/schoolfin/internal/storage/postgres"
)

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ registry.Repo      = (*postgres.Store)(nil)
	_ registry.Writer    = (*postgres.Store)(nil)
	_ balance.Repo       = (*postgres.Store)(nil)
	_ obligation.Repo    = (*postgres.Store)(nil)
	_ obligation.Writer  = (*postgres.Store)(nil)
	_ settlement.Repo    = (*postgres.Store)(nil)
	_ contract.Repo      = (*postgres.Store)(nil)
	_ storage.TxBeginner = (*postgres.Store)(nil)
)
