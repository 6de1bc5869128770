package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("events")

		collection.Fields.Add(
			&core.TextField{Name: "name", Required: true},
			&core.TextField{Name: "venue"},
			&core.DateField{Name: "start_date"},
			&core.TextField{Name: "organizer"},
			&core.SelectField{
				Name:      "status",
				MaxSelect: 1,
				Values:    []string{"draft", "published", "started", "ended"},
			},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
