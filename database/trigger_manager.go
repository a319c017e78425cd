package database

import (
	"fmt"

	"github.com/yeremiapane/restaurant-tableorder/utils"
	"gorm.io/gorm"
)

// Trigger names installed by ExecuteTriggers.
var TriggerNames = []string{
	"trg_tables_status_change",
	"trg_sessions_status_change",
	"trg_orders_insert",
}

// ExecuteTriggers installs the change-feed triggers that fill db_changes for
// the dialect behind db. It is safe to call on every start.
func ExecuteTriggers(db *gorm.DB) error {
	var statements []string
	switch name := db.Dialector.Name(); name {
	case "mysql":
		statements = mysqlTriggers
	case "postgres":
		statements = postgresTriggers
	case "sqlite":
		statements = sqliteTriggers
	default:
		return fmt.Errorf("change feed triggers: unsupported dialect %q", name)
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			utils.ErrorLogger.Printf("Error executing trigger: %v\nStatement: %s", err, stmt)
			return fmt.Errorf("install triggers: %w", err)
		}
	}

	installed, err := InstalledTriggers(db)
	if err != nil {
		return err
	}
	for _, t := range installed {
		utils.InfoLogger.Printf("Trigger verified: %s", t)
	}
	if len(installed) < len(TriggerNames) {
		return fmt.Errorf("install triggers: expected %d, found %d", len(TriggerNames), len(installed))
	}
	return nil
}

// InstalledTriggers lists the change-feed triggers present in the database.
func InstalledTriggers(db *gorm.DB) ([]string, error) {
	var names []string
	var err error
	switch db.Dialector.Name() {
	case "mysql":
		err = db.Raw(`SELECT TRIGGER_NAME FROM information_schema.triggers
			WHERE TRIGGER_SCHEMA = DATABASE() AND TRIGGER_NAME IN ?`, TriggerNames).Scan(&names).Error
	case "postgres":
		err = db.Raw(`SELECT DISTINCT trigger_name FROM information_schema.triggers
			WHERE trigger_name IN ?`, TriggerNames).Scan(&names).Error
	case "sqlite":
		err = db.Raw(`SELECT name FROM sqlite_master
			WHERE type = 'trigger' AND name IN ?`, TriggerNames).Scan(&names).Error
	}
	return names, err
}

var mysqlTriggers = []string{
	`DROP TRIGGER IF EXISTS trg_tables_status_change`,
	`CREATE TRIGGER trg_tables_status_change AFTER UPDATE ON tables FOR EACH ROW
	BEGIN
		IF NOT (OLD.status <=> NEW.status) THEN
			INSERT INTO db_changes (table_name, record_id, action_type, new_status, changed_at, processed)
			VALUES ('tables', NEW.id, 'UPDATE', NEW.status, NOW(3), FALSE);
		END IF;
	END`,
	`DROP TRIGGER IF EXISTS trg_sessions_status_change`,
	`CREATE TRIGGER trg_sessions_status_change AFTER UPDATE ON sessions FOR EACH ROW
	BEGIN
		IF NOT (OLD.status <=> NEW.status) THEN
			INSERT INTO db_changes (table_name, record_id, action_type, new_status, changed_at, processed)
			VALUES ('sessions', NEW.id, 'UPDATE', NEW.status, NOW(3), FALSE);
		END IF;
	END`,
	`DROP TRIGGER IF EXISTS trg_orders_insert`,
	`CREATE TRIGGER trg_orders_insert AFTER INSERT ON orders FOR EACH ROW
	BEGIN
		INSERT INTO db_changes (table_name, record_id, action_type, changed_at, processed)
		VALUES ('orders', NEW.id, 'INSERT', NOW(3), FALSE);
	END`,
}

var postgresTriggers = []string{
	`CREATE OR REPLACE FUNCTION record_db_change() RETURNS trigger AS $$
	DECLARE
		recorded_status VARCHAR(30);
	BEGIN
		IF TG_OP = 'UPDATE' THEN
			IF OLD.status IS NOT DISTINCT FROM NEW.status THEN
				RETURN NEW;
			END IF;
			recorded_status := NEW.status;
		END IF;
		INSERT INTO db_changes (table_name, record_id, action_type, new_status, changed_at, processed)
		VALUES (TG_TABLE_NAME, NEW.id, TG_OP, recorded_status, NOW(), FALSE);
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_tables_status_change ON tables`,
	`CREATE TRIGGER trg_tables_status_change AFTER UPDATE ON tables
	FOR EACH ROW EXECUTE FUNCTION record_db_change()`,
	`DROP TRIGGER IF EXISTS trg_sessions_status_change ON sessions`,
	`CREATE TRIGGER trg_sessions_status_change AFTER UPDATE ON sessions
	FOR EACH ROW EXECUTE FUNCTION record_db_change()`,
	`DROP TRIGGER IF EXISTS trg_orders_insert ON orders`,
	`CREATE TRIGGER trg_orders_insert AFTER INSERT ON orders
	FOR EACH ROW EXECUTE FUNCTION record_db_change()`,
}

var sqliteTriggers = []string{
	`DROP TRIGGER IF EXISTS trg_tables_status_change`,
	`CREATE TRIGGER trg_tables_status_change AFTER UPDATE OF status ON tables
	FOR EACH ROW WHEN OLD.status IS NOT NEW.status
	BEGIN
		INSERT INTO db_changes (table_name, record_id, action_type, new_status, changed_at, processed)
		VALUES ('tables', NEW.id, 'UPDATE', NEW.status, CURRENT_TIMESTAMP, 0);
	END`,
	`DROP TRIGGER IF EXISTS trg_sessions_status_change`,
	`CREATE TRIGGER trg_sessions_status_change AFTER UPDATE OF status ON sessions
	FOR EACH ROW WHEN OLD.status IS NOT NEW.status
	BEGIN
		INSERT INTO db_changes (table_name, record_id, action_type, new_status, changed_at, processed)
		VALUES ('sessions', NEW.id, 'UPDATE', NEW.status, CURRENT_TIMESTAMP, 0);
	END`,
	`DROP TRIGGER IF EXISTS trg_orders_insert`,
	`CREATE TRIGGER trg_orders_insert AFTER INSERT ON orders
	FOR EACH ROW
	BEGIN
		INSERT INTO db_changes (table_name, record_id, action_type, changed_at, processed)
		VALUES ('orders', NEW.id, 'INSERT', CURRENT_TIMESTAMP, 0);
	END`,
}
