package cli

import (
	"bytes"
	"context"
	"flag"
	"testing"

	"armory-backend/internal/application/assets"
	"armory-backend/internal/constants"
	"armory-backend/internal/domain"
	"armory-backend/internal/ledger"
	"armory-backend/internal/pkg/testutil"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testEnv(t *testing.T) (*Env, *gorm.DB, *bytes.Buffer) {
	db := testutil.DB(t)
	var out bytes.Buffer
	return &Env{
		Open: func(context.Context) (*gorm.DB, error) { return db, nil },
		Out:  &out,
	}, db, &out
}

func run(t *testing.T, env *Env, name string, args ...string) subcommands.ExitStatus {
	t.Helper()
	for _, cmd := range Commands(env) {
		if cmd.Name() != name {
			continue
		}
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		cmd.SetFlags(fs)
		require.NoError(t, fs.Parse(args))
		return cmd.Execute(context.Background(), fs)
	}
	t.Fatalf("no command %q", name)
	return subcommands.ExitFailure
}

func TestMigrate(t *testing.T) {
	env, _, out := testEnv(t)
	assert.Equal(t, subcommands.ExitSuccess, run(t, env, "migrate"))
	assert.Contains(t, out.String(), "migrated")
}

func TestSeed_CreatesAdminAndStock(t *testing.T) {
	env, db, out := testEnv(t)

	status := run(t, env, "seed", "-email", "Root@Armory.mil", "-password", "Str0ng!pass", "-bases", "Fort Alpha, Fort Bravo", "-opening", "20")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out.String(), "created admin Root@Armory.mil")

	var admin domain.User
	require.NoError(t, db.Where("email = ?", "root@armory.mil").First(&admin).Error)
	assert.Equal(t, constants.Admin, admin.Role)

	var count int64
	require.NoError(t, db.Model(&domain.Asset{}).Count(&count).Error)
	assert.Equal(t, int64(2*len(domain.AssetTypes)), count)

	out.Reset()
	status = run(t, env, "seed", "-email", "root@armory.mil", "-password", "Str0ng!pass", "-bases", "Fort Alpha")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out.String(), "already exists")
	assert.Contains(t, out.String(), "skip Fort Alpha/Weapon (exists)")
}

func TestSeed_RejectsWeakPassword(t *testing.T) {
	env, _, _ := testEnv(t)
	assert.Equal(t, subcommands.ExitFailure, run(t, env, "seed", "-email", "a@b.mil", "-password", "short"))
	assert.Equal(t, subcommands.ExitFailure, run(t, env, "seed"))
}

func TestBalances_Plain(t *testing.T) {
	env, db, out := testEnv(t)
	svc := &assets.Service{DB: db}
	_, err := svc.Create(context.Background(), operator, assets.CreateInput{
		Name: "Humvee", Type: domain.AssetTypeVehicle, Base: "Fort Alpha", OpeningBalance: 3,
	})
	require.NoError(t, err)

	require.Equal(t, subcommands.ExitSuccess, run(t, env, "balances", "-plain"))
	assert.Contains(t, out.String(), "Humvee")
	assert.Contains(t, out.String(), "Fort Alpha")

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, env, "balances", "-plain", "-summary"))
	assert.Contains(t, out.String(), "Base summary")
}

func TestMarkdownTables(t *testing.T) {
	assert.Contains(t, BalancesMarkdown(nil), "_No assets._")
	md := BalancesMarkdown([]domain.Asset{{Name: "Radio", Type: domain.AssetTypeEquipment, Base: "Alpha", ClosingBalance: 9, Available: 7}})
	assert.Contains(t, md, "| Alpha | Equipment | Radio | 0 | 0 | 0 | 0 | 0 | 0 | 9 | 7 |")

	md = SummaryMarkdown([]assets.SummaryRow{{Base: "Alpha", Type: "Weapon", Assets: 2, NetMovement: -4, ClosingBalance: 6, Available: 6}})
	assert.Contains(t, md, "| Alpha | Weapon | 2 | 0 | -4 | 0 | 0 | 6 | 6 |")
}

func TestRecoverTransfers(t *testing.T) {
	env, db, out := testEnv(t)
	ctx := context.Background()

	src := &domain.Asset{Name: "M4 Carbine", Type: domain.AssetTypeWeapon, Base: "Alpha", OpeningBalance: 10}
	ledger.Recalculate(src)
	require.NoError(t, db.Create(src).Error)
	transfer := &domain.Transfer{
		AssetID: src.AssetID, AssetName: src.Name, AssetType: src.Type,
		FromBase: "Alpha", ToBase: "Bravo", Quantity: 6, Status: domain.TransferPending,
	}
	require.NoError(t, db.Create(transfer).Error)
	require.NoError(t, db.Create(&domain.TransferIntent{
		TransferID: transfer.TransferID, Kind: domain.IntentKindCreate, Step: domain.IntentStepSourceApplied,
	}).Error)
	_, err := ledger.Reserve(ctx, db, src.AssetID, ledger.Delta{TransferOut: 6}, 6)
	require.NoError(t, err)

	require.Equal(t, subcommands.ExitSuccess, run(t, env, "recover-transfers", "-dry-run"))
	assert.Contains(t, out.String(), "1 pending")

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, env, "recover-transfers"))
	assert.Contains(t, out.String(), "scanned=1 resumed=1 failed=0")

	var dest domain.Asset
	require.NoError(t, db.Where("base = ? AND name = ?", "Bravo", "M4 Carbine").First(&dest).Error)
	assert.Equal(t, int64(6), dest.TransferIn)
	assert.Equal(t, int64(6), dest.Available)
}
