package versions

import (
	"log"

	"gorm.io/gorm"
)

// Migration_1_request_images adds the image attachment column to material
// requests for deployments created before attachments existed.
func Migration_1_request_images(txn *gorm.DB) error {
	log.Println("adding image_url column to table 'material_requests'")

	type MaterialRequest struct {
		ImageUrl *string `gorm:"size:500"`
	}

	if txn.Migrator().HasColumn(&MaterialRequest{}, "image_url") {
		log.Println("column 'image_url' already present, nothing to do")
		return nil
	}

	if err := txn.Migrator().AddColumn(&MaterialRequest{}, "ImageUrl"); err != nil {
		return err
	}

	log.Println("table 'material_requests' migration complete")

	return nil
}
