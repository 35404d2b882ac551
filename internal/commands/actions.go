package commands

import (
	"github.com/nimbasms/nimbasms-cli/pkg/nimba"
	"github.com/nimbasms/nimbasms-cli/pkg/output"
)

const (
	argActionID = "action_id"
	argPlanID   = "plan_id"
)

var actionColumns = []output.Column{
	output.Col("ID", "actionid", "id"),
	output.Col("NAME", "name"),
	output.Col("METHOD", "method"),
	output.Col("ENDPOINT", "endpoint"),
	output.Col("DESCRIPTION", "description"),
}

var actionDetail = append(append([]output.Column{}, actionColumns...),
	output.Col("REQUIRED PARAMS", "required_params"),
	output.Col("OPTIONAL PARAMS", "optional_params"),
	output.Col("RESPONSE FORMAT", "response_format"),
)

var actionFields = []field{
	{Flag: "name", Help: "Action name"},
	{Flag: "method", Help: "HTTP method", Enum: nimba.HTTPMethods},
	{Flag: "endpoint", Help: "Endpoint path relative to the extension base URL"},
	{Flag: "description", Help: "Action description"},
	{Flag: "required-params", Kind: objectField, Help: "Required parameters as a JSON object"},
	{Flag: "optional-params", Kind: objectField, Help: "Optional parameters as a JSON object"},
	{Flag: "response-format", Kind: objectField, Help: "Response format as a JSON object"},
}

const actionsPath = "extensions {" + nimba.ParamExtensionID + "} actions"

func registerActions(r *registrar) {
	r.group(actionsPath, "Manage the actions of an extension")

	r.add(actionsPath+" list", listCommand[nimba.ExtensionAction](listSpec{
		Res:     nimba.Actions,
		Short:   "List the actions of an extension",
		Example: "  nimbasms extensions 3f1c actions list",
		Columns: actionColumns,
		Params:  extensionParams,
	}))
	r.add(actionsPath+" get", getCommand[nimba.ExtensionAction](nimba.Actions, "Show an action", argActionID, extensionParams, actionDetail))
	r.add(actionsPath+" create", createCommand[nimba.ExtensionAction](nimba.Actions, "Create an action",
		`  nimbasms extensions 3f1c actions create --name send --method POST --endpoint /send --description "Send a message"`,
		extensionParams, actionFields, []string{"name", "method", "endpoint"}, actionDetail))
	r.add(actionsPath+" update", updateCommand[nimba.ExtensionAction](nimba.Actions, "Update an action", argActionID, extensionParams, actionFields, actionDetail))
	r.add(actionsPath+" delete", deleteCommand(nimba.Actions, "Delete an action", argActionID, extensionParams))
	r.add(actionsPath+" publish", publishCommand(nimba.ActionPublish, "Publish an action", argActionID, extensionParams))
}

var planColumns = []output.Column{
	output.Col("ID", "pricingplanid", "id"),
	output.Col("NAME", "name"),
	output.Col("PRICE", "price"),
	output.Col("PERIOD", "billing_period"),
	output.Col("FEATURES", "features"),
}

var planFields = []field{
	{Flag: "name", Help: "Plan name"},
	{Flag: "price", Help: "Price as a decimal string, e.g. 9.99"},
	{Flag: "billing-period", Help: "Billing period", Enum: nimba.BillingPeriods},
	{Flag: "features", Kind: objectField, Help: "Plan features as a JSON object"},
}

const plansPath = "extensions {" + nimba.ParamExtensionID + "} plans"

func registerPlans(r *registrar) {
	r.group(plansPath, "Manage the pricing plans of an extension")

	r.add(plansPath+" list", listCommand[nimba.PricingPlan](listSpec{
		Res:     nimba.Plans,
		Short:   "List the pricing plans of an extension",
		Columns: planColumns,
		Params:  extensionParams,
	}))
	r.add(plansPath+" get", getCommand[nimba.PricingPlan](nimba.Plans, "Show a pricing plan", argPlanID, extensionParams, planColumns))
	r.add(plansPath+" create", createCommand[nimba.PricingPlan](nimba.Plans, "Create a pricing plan",
		`  nimbasms extensions 3f1c plans create --name Pro --price 9.99 --billing-period monthly --features '{"sms":1000}'`,
		extensionParams, planFields, []string{"name", "price", "billing-period"}, planColumns))
	r.add(plansPath+" update", updateCommand[nimba.PricingPlan](nimba.Plans, "Update a pricing plan", argPlanID, extensionParams, planFields, planColumns))
	r.add(plansPath+" delete", deleteCommand(nimba.Plans, "Delete a pricing plan", argPlanID, extensionParams))
}
