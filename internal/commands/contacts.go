package commands

import (
	"github.com/nimbasms/nimbasms-cli/pkg/nimba"
	"github.com/nimbasms/nimbasms-cli/pkg/output"
)

var contactColumns = []output.Column{
	output.Col("ID", "contact_id"),
	output.Col("NAME", "name"),
	output.Col("NUMBER", "numero"),
	output.Col("GROUPS", "groups"),
	output.Col("CREATED", "created_at"),
}

var contactFields = []field{
	{Flag: "numero", Help: "Phone number of the contact"},
	{Flag: "name", Help: "Display name"},
	{Flag: "groups", Kind: listField, Help: "Groups to add the contact to, repeatable or comma separated"},
}

var groupColumns = []output.Column{
	output.Col("ID", "groupe_id"),
	output.Col("NAME", "name"),
	output.Col("CONTACTS", "total_contact"),
	output.Col("ADDED", "added_at"),
}

var senderNameColumns = []output.Column{
	output.Col("ID", "sendername_id"),
	output.Col("NAME", "name"),
	output.Col("STATUS", "status"),
	output.Col("ADDED", "added_at"),
}

func registerContacts(r *registrar) {
	r.group("contacts", "Manage the address book")
	r.add("contacts list", listCommand[nimba.Contact](listSpec{
		Res:     nimba.Contacts,
		Short:   "List contacts",
		Columns: contactColumns,
	}))
	r.add("contacts create", createCommand[nimba.Contact](nimba.Contacts, "Create a contact",
		`  nimbasms contacts create --numero 224620000000 --name "Mariam" --groups clients`,
		noParams, contactFields, []string{"numero"}, contactColumns))

	r.group("groups", "Inspect contact groups")
	r.add("groups list", listCommand[nimba.Group](listSpec{
		Res:     nimba.Groups,
		Short:   "List contact groups",
		Columns: groupColumns,
	}))

	r.group("sendernames", "Inspect registered sender names")
	r.add("sendernames list", listCommand[nimba.SenderName](listSpec{
		Res:     nimba.SenderNames,
		Short:   "List sender names",
		Example: `  nimbasms sendernames list --filter 'status == "accepted"'`,
		Columns: senderNameColumns,
	}))
}
