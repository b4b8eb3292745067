package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/maillot-backend/pkg/db"
	"github.com/angelmondragon/maillot-backend/pkg/migrate"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected one %s migration", suffix)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsValidate(t *testing.T) {
	count, err := migrate.ValidateDir("migrations")
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestCatalogMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_users_catalog")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CONSTRAINT products_slug_key UNIQUE (slug)",
		"CONSTRAINT idx_product_size_stock UNIQUE (product_id, size)",
		"CHECK (stock_quantity >= 0)",
		"CONSTRAINT idx_review_product_user UNIQUE (product_id, user_id)",
		"DROP TABLE IF EXISTS users",
	}
	for _, sub := range checks {
		require.Contains(t, content, sub)
	}
}

func TestCartMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_customizations_carts")

	checks := []string{
		"CONSTRAINT idx_customization_natural_key UNIQUE (type, badge_type, name)",
		"CONSTRAINT idx_cart_product_size UNIQUE (cart_id, product_id, size)",
		"CHECK ((user_id IS NULL) <> (session_token IS NULL))",
		"custom_text varchar(50)",
	}
	for _, sub := range checks {
		require.Contains(t, content, sub)
	}
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_orders_payments")

	checks := []string{
		"CONSTRAINT orders_order_number_key UNIQUE (order_number)",
		"CONSTRAINT payments_order_id_key UNIQUE (order_id)",
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE SET NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_addresses_single_default ON addresses (user_id) WHERE is_default",
		"CHECK (total = subtotal + shipping_cost)",
	}
	for _, sub := range checks {
		require.Contains(t, content, sub)
	}
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	_, err := migrate.ValidateDir(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid migration filename")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Wave Columns!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_wave_columns.sql"))

	count, err := migrate.ValidateDir(dir)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestAutoMigrateModels(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file:automigrate?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	client := db.NewFromGorm(gdb)
	require.NoError(t, migrate.AutoMigrateModels(context.Background(), client))

	for _, table := range []string{"products", "carts", "orders", "payments", "payment_logs"} {
		require.True(t, gdb.Migrator().HasTable(table), table)
	}
}
