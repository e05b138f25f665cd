package template

// PredefinedTemplates are rendered against notify.Notification
var PredefinedTemplates = []*Template{
	{
		Type:  TemplateTypeStage,
		Title: `[{{.Pipeline}}] stage {{.Stage}} {{.Status | lower}}`,
		Content: `*Stage:* {{.Stage}}{{if .Environment}} ({{.Environment | title}}){{end}}
*Status:* {{.Status | title}}
*Run:* {{.RunID}}
*Branch:* {{.Branch}} @ {{short .SHA}}
{{- if .Duration}}
*Duration:* {{duration .Duration}}{{end}}
{{- if .Error}}
*Error:* {{.Error}}{{end}}`,
	},
	{
		Type:  TemplateTypeRun,
		Title: `[{{.Pipeline}}] run {{.Status | lower}} on {{.Branch}}`,
		Content: `*Run:* {{.RunID}}
*Status:* {{.Status | title}}
*Event:* {{.Event}}{{if .Actor}} by {{.Actor}}{{end}}
*Commit:* {{short .SHA}}
{{- if .Environment}}
*Environment:* {{.Environment | title}}{{if .URL}} <{{.URL}}>{{end}}{{end}}
{{- if .Duration}}
*Duration:* {{duration .Duration}}{{end}}
{{- if .Error}}
*Error:* {{.Error}}{{end}}`,
	},
	{
		Type:  TemplateTypeApproval,
		Title: `[{{.Pipeline}}] approval needed for {{.Stage}}`,
		Content: `*Stage:* {{.Stage}} to {{.Environment | title}}
*Run:* {{.RunID}} on {{.Branch}} @ {{short .SHA}}
*Approval:* {{.ApprovalID}}
{{- if .Approvers}}
*Approvers:* {{range $i, $a := .Approvers}}{{if $i}}, {{end}}{{$a}}{{end}}{{end}}
*Expires:* {{.ExpiresAt.Format "2006-01-02 15:04 MST"}}`,
	},
}
