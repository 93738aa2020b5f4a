package versions

import (
	"log"

	"rlhf_platform/run_bazaar/schema"

	"gorm.io/gorm"
)

// Adds the uploads table and the base run reference on runs. Earlier
// deployments only supported training from scratch on datasets already
// present on the shared disk.
func Migration_1_run_uploads(txn *gorm.DB) error {
	log.Println("adding uploads table and base run column")

	type Run struct {
		BaseRunId *string `gorm:"type:uuid"`
	}

	if !txn.Migrator().HasColumn(&Run{}, "base_run_id") {
		if err := txn.Migrator().AddColumn(&Run{}, "BaseRunId"); err != nil {
			return err
		}
	}

	if err := txn.Migrator().AutoMigrate(&schema.Upload{}); err != nil {
		return err
	}

	log.Println("uploads migration complete")

	return nil
}
