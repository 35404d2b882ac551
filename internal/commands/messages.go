package commands

import (
	"context"

	"github.com/nimbasms/nimbasms-cli/internal/command"
	"github.com/nimbasms/nimbasms-cli/pkg/api"
	"github.com/nimbasms/nimbasms-cli/pkg/nimba"
	"github.com/nimbasms/nimbasms-cli/pkg/output"
)

const argMessageID = "message_id"

var messageColumns = []output.Column{
	output.Col("ID", "messageid"),
	output.Col("SENDER", "sender_name"),
	output.Col("STATUS", "status"),
	output.Col("SENT AT", "sent_at"),
	output.Col("MESSAGE", "message"),
}

var messageDetail = append(append([]output.Column{}, messageColumns...),
	output.Col("NUMBERS", "numbers"),
)

var messageFilters = []field{
	{Flag: "status", Help: "Only show messages with this status", Enum: nimba.MessageStatuses},
	{Flag: "sent-after", Key: "sent_at__gte", Help: "Only show messages sent at or after this time"},
	{Flag: "sent-before", Key: "sent_at__lte", Help: "Only show messages sent at or before this time"},
}

var messageFields = []field{
	{Flag: "to", Kind: listField, Help: "Recipient phone number, repeatable or comma separated"},
	{Flag: "sender", Key: "sender_name", Help: "Registered sender name"},
	{Flag: "message", Help: "Message text"},
}

var receiptColumns = []output.Column{
	output.Col("MESSAGE ID", "messageid"),
	output.Col("URL", "url"),
}

func registerMessages(r *registrar) {
	r.group("messages", "Send and inspect SMS messages")

	r.add("messages list", listCommand[nimba.Message](listSpec{
		Res:     nimba.Messages,
		Short:   "List sent messages",
		Example: "  nimbasms messages list --status sent --limit 20",
		Columns: messageColumns,
		Fields:  messageFilters,
	}))
	r.add("messages get", getCommand[nimba.Message](nimba.Messages, "Show a message", argMessageID, noParams, messageDetail))

	r.add("messages send", &command.Command{
		Short:    "Send an SMS to one or more recipients",
		Example:  `  nimbasms messages send --to 224620000000 --to 224621000000 --sender Nimba --message "Hello"`,
		Flags:    flagsFor(messageFields),
		Required: []string{"to", "sender", "message"},
		Validate: func(inv *command.Invocation) error {
			for _, to := range inv.Strings("to") {
				if to == "" {
					return command.Invalid("--to", "recipient must not be empty")
				}
			}
			return nil
		},
		Run: func(ctx context.Context, inv *command.Invocation) (*output.Result, error) {
			msg := nimba.NewMessage{
				SenderName: inv.String("sender"),
				To:         inv.Strings("to"),
				Message:    inv.String("message"),
			}
			receipt, err := api.Create[nimba.MessageReceipt](ctx, inv.Client, nimba.MessageSend, nil, msg)
			if err != nil {
				return nil, err
			}
			return output.Object("message", receipt.Raw, receiptColumns...), nil
		},
	})
}
