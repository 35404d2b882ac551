package commands

import (
	"context"

	"github.com/nimbasms/nimbasms-cli/internal/command"
	"github.com/nimbasms/nimbasms-cli/pkg/api"
	"github.com/nimbasms/nimbasms-cli/pkg/nimba"
	"github.com/nimbasms/nimbasms-cli/pkg/output"
)

const (
	argVerificationID = "verification_id"
	flagCode          = "code"
)

var verificationColumns = []output.Column{
	output.Col("ID", "verificationid"),
	output.Col("TO", "to"),
	output.Col("SENDER", "sender_name"),
	output.Col("EXPIRY", "expiry_time"),
	output.Col("ATTEMPTS", "attempts"),
	output.Col("CODE LENGTH", "code_length"),
	output.Col("URL", "url"),
}

var verificationFields = []field{
	{Flag: "to", Help: "Phone number to verify"},
	{Flag: "message", Help: "Message template; must contain <1234> where the code goes"},
	{Flag: "sender", Key: "sender_name", Help: "Registered sender name"},
	{Flag: "expiry", Key: "expiry_time", Kind: intField, Help: "Minutes before the code expires", Min: 5, Max: 30},
	{Flag: "attempts", Kind: intField, Help: "Number of allowed attempts", Min: 3, Max: 10},
	{Flag: "code-length", Kind: intField, Help: "Number of digits in the code", Min: 4, Max: 8},
}

var checkColumns = []output.Column{
	output.Col("CODE", "code"),
	output.Col("STATUS", "status"),
}

func registerVerifications(r *registrar) {
	r.group("verifications", "Send and check one-time verification codes")

	r.add("verifications create", createCommand[nimba.Verification](nimba.Verifications, "Send a verification code",
		"  nimbasms verifications create --to 224620000000 --expiry 10 --code-length 6",
		noParams, verificationFields, []string{"to"}, verificationColumns))

	r.add("verifications verify", &command.Command{
		Short:    "Check a verification code",
		Args:     idArg(argVerificationID, "Identifier of the verification"),
		Example:  "  nimbasms verifications verify 9b2e --code 123456",
		Flags:    flagsFor([]field{{Flag: flagCode, Kind: intField, Help: "Code received by SMS"}}),
		Required: []string{flagCode},
		Validate: func(inv *command.Invocation) error {
			if inv.Int(flagCode) < 0 {
				return command.Invalid("--"+flagCode, "must not be negative")
			}
			return nil
		},
		Run: func(ctx context.Context, inv *command.Invocation) (*output.Result, error) {
			body := nimba.VerificationCheck{Code: inv.Int(flagCode)}
			check, err := api.Update[nimba.VerificationCheck](ctx, inv.Client, nimba.VerificationChecks, nil, inv.Arg(argVerificationID), body)
			if err != nil {
				return nil, err
			}
			return output.Object("verification", check.Raw, checkColumns...), nil
		},
	})
}
