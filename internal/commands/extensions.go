package commands

import (
	"context"
	"mime"
	"path/filepath"

	"github.com/nimbasms/nimbasms-cli/internal/command"
	"github.com/nimbasms/nimbasms-cli/pkg/api"
	"github.com/nimbasms/nimbasms-cli/pkg/nimba"
	"github.com/nimbasms/nimbasms-cli/pkg/output"
)

const argExtensionID = "extension_id"

var extensionColumns = []output.Column{
	output.Col("ID", "extensionid", "id"),
	output.Col("NAME", "name"),
	output.Col("AUTH", "auth_type"),
	output.Col("PAID", "is_paid"),
	output.Col("PUBLISHED", "is_published"),
	output.Col("APPROVED", "is_approved"),
	output.Col("CREATED", "created_at"),
}

var extensionDetail = []output.Column{
	output.Col("ID", "extensionid", "id"),
	output.Col("NAME", "name"),
	output.Col("DESCRIPTION", "description"),
	output.Col("BASE API URL", "base_api_url"),
	output.Col("AUTH", "auth_type"),
	output.Col("PAID", "is_paid"),
	output.Col("PUBLISHED", "is_published"),
	output.Col("APPROVED", "is_approved"),
	output.Col("DOCUMENTATION", "documentation_url"),
	output.Col("WEBSITE", "website_url"),
	output.Col("LOGO", "logo"),
	output.Col("CREATED", "created_at"),
	output.Col("UPDATED", "updated_at"),
}

func authTypeNames() []string {
	names := make([]string, len(nimba.AuthTypes))
	for i, t := range nimba.AuthTypes {
		names[i] = string(t)
	}
	return names
}

var extensionFields = []field{
	{Flag: "name", Help: "Extension name"},
	{Flag: "description", Help: "Extension description"},
	{Flag: "category", Help: "Extension category"},
	{Flag: "base-api-url", Help: "Base URL of the extension API", URL: true},
	{Flag: "auth-type", Help: "Authentication scheme of the extension API", Enum: authTypeNames()},
	{Flag: "is-paid", Kind: boolField, Help: "Mark the extension as paid"},
	{Flag: "docs-url", Key: "documentation_url", Help: "Documentation URL", URL: true},
	{Flag: "website-url", Help: "Website URL", URL: true},
	{Flag: "oauth2-config", Kind: objectField, Help: "OAuth2 settings as a JSON object"},
}

func registerExtensions(r *registrar, opts Options) {
	r.group("extensions", "Manage extensions")

	r.add("extensions list", listCommand[nimba.Extension](listSpec{
		Res:     nimba.Extensions,
		Short:   "List extensions",
		Example: "  nimbasms extensions list --all --filter 'is_published'",
		Columns: extensionColumns,
	}))
	r.add("extensions get", getCommand[nimba.Extension](nimba.Extensions, "Show an extension", argExtensionID, noParams, extensionDetail))
	r.add("extensions create", createCommand[nimba.Extension](nimba.Extensions, "Create an extension",
		`  nimbasms extensions create --name "Foo" --base-api-url "https://api.example.com"`,
		noParams, extensionFields, []string{"name", "base-api-url"}, extensionDetail))
	r.add("extensions update", updateCommand[nimba.Extension](nimba.Extensions, "Update an extension", argExtensionID, noParams, extensionFields, extensionDetail))
	r.add("extensions delete", deleteCommand(nimba.Extensions, "Delete an extension", argExtensionID, noParams))
	r.add("extensions publish", publishCommand(nimba.ExtensionPublish, "Publish an extension", argExtensionID, noParams))

	r.add("extensions upload-logo", &command.Command{
		Short: "Upload the logo of an extension",
		Args: []command.Arg{
			{Name: argExtensionID, Help: "Identifier of the extension", ID: true},
			{Name: "file", Help: "Path to the image file"},
		},
		Example: "  nimbasms extensions upload-logo 3f1c logo.png",
		Run: func(ctx context.Context, inv *command.Invocation) (*output.Result, error) {
			path := inv.Arg("file")
			f, err := opts.OpenFile(path)
			if err != nil {
				return nil, command.Invalid("<file>", "%v", err)
			}
			defer func() { _ = f.Close() }()

			ext, err := api.Upload[nimba.Extension](ctx, inv.Client, nimba.Extensions, nil, inv.Arg(argExtensionID), api.File{
				Field:       nimba.Extensions.Upload,
				Name:        filepath.Base(path),
				ContentType: mime.TypeByExtension(filepath.Ext(path)),
				Content:     f,
			})
			if err != nil {
				return nil, err
			}
			return output.Object("extension", ext.Raw, extensionDetail...), nil
		},
	})

	r.add("extensions docs", &command.Command{
		Short: "Open the documentation of an extension in the browser",
		Long:  "Open the documentation of an extension in the browser. Falls back to the website URL.",
		Args:  idArg(argExtensionID, "Identifier of the extension"),
		Run: func(ctx context.Context, inv *command.Invocation) (*output.Result, error) {
			id := inv.Arg(argExtensionID)
			ext, err := api.Get[nimba.Extension](ctx, inv.Client, nimba.Extensions, nil, id)
			if err != nil {
				return nil, err
			}
			link := ext.Value.DocumentationURL
			if link == "" {
				link = ext.Value.WebsiteURL
			}
			if link == "" {
				return nil, failf("extension %s has no documentation or website URL", id)
			}
			if err := checkURL(link); err != nil {
				return nil, failf("extension %s documentation: %w", id, err)
			}
			if err := opts.OpenURL(link); err != nil {
				return nil, failf("failed to open %s: %w", link, err)
			}
			return output.Message("Opened " + link), nil
		},
	})
}
