package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("payments")

		collection.Fields.Add(
			&core.TextField{Name: "order_id", Required: true},
			&core.TextField{Name: "gateway_payment_id"},
			&core.TextField{Name: "event_id", Required: true},
			&core.TextField{Name: "attendee_id", Required: true},
			&core.TextField{Name: "ticket_type_id", Required: true},
			&core.TextField{Name: "amount", Required: true},
			&core.TextField{Name: "currency"},
			&core.SelectField{
				Name:      "status",
				MaxSelect: 1,
				Values: []string{
					"created",
					"payment_link_created",
					"payment_link_sent",
					"captured",
					"failed",
					"refunded",
				},
			},
			&core.TextField{Name: "payment_method"},
			&core.TextField{Name: "error_message"},
			&core.TextField{Name: "refund_id"},
			&core.TextField{Name: "refund_details"},
			&core.TextField{Name: "payment_link_id"},
			&core.TextField{Name: "payment_link_url"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		// One ledger row per gateway order. The conditional status updates
		// rely on order_id addressing exactly one row.
		collection.AddIndex("idx_payments_order_id", true, "order_id", "")
		collection.AddIndex("idx_payments_attendee", false, "attendee_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("payments")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
