package commands

import (
	"context"

	"github.com/nimbasms/nimbasms-cli/internal/command"
	"github.com/nimbasms/nimbasms-cli/pkg/api"
	"github.com/nimbasms/nimbasms-cli/pkg/nimba"
	"github.com/nimbasms/nimbasms-cli/pkg/output"
)

var accountColumns = []output.Column{
	output.Col("SID", "sid"),
	output.Col("BALANCE", "balance"),
	output.Col("WEBHOOK", "webhook_url"),
}

func registerAccount(r *registrar) {
	r.group("account", "Inspect the service account")
	r.add("account balance", &command.Command{
		Short: "Show the SMS balance of the account",
		Run: func(ctx context.Context, inv *command.Invocation) (*output.Result, error) {
			acct, err := api.Fetch[nimba.Account](ctx, inv.Client, nimba.Accounts, nil)
			if err != nil {
				return nil, err
			}
			return output.Object(nimba.Accounts.Name, acct.Raw, accountColumns...), nil
		},
	})
}
