package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("ticket_types")

		collection.Fields.Add(
			&core.TextField{Name: "event_id", Required: true},
			&core.TextField{Name: "name", Required: true},
			&core.TextField{Name: "price", Required: true},
			&core.TextField{Name: "currency"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_ticket_types_event", false, "event_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("ticket_types")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
