package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("attendees")

		collection.Fields.Add(
			&core.TextField{Name: "event_id", Required: true},
			&core.TextField{Name: "name", Required: true},
			&core.EmailField{Name: "email"},
			&core.SelectField{
				Name:      "status",
				MaxSelect: 1,
				Values:    []string{"registered", "checked_in", "cancelled"},
			},
			&core.DateField{Name: "check_in_time"},
			&core.TextField{Name: "checked_in_by"},
			&core.TextField{Name: "code_hash"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_attendees_event", false, "event_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("attendees")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
