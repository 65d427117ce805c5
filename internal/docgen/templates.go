package docgen

// ResumeTemplate is the built-in resume layout. A4 sizing is driven by the
// @page rule; the renderer prints with PreferCSSPageSize.
const ResumeTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        @page { size: A4; margin: 18mm 16mm; }
        body {
            margin: 0;
            font-family: 'Helvetica', 'Arial', sans-serif;
            font-size: 10.5pt;
            color: #1f2430;
        }
        h1 { font-size: 22pt; margin: 0; }
        h2 {
            font-size: 12pt;
            text-transform: uppercase;
            letter-spacing: 1px;
            border-bottom: 1px solid #c6ccd8;
            padding-bottom: 2px;
            margin: 14px 0 6px;
        }
        .contact-line { color: #4a5160; font-size: 9.5pt; margin-top: 4px; }
        .entry { margin-bottom: 10px; page-break-inside: avoid; }
        .entry-head { display: flex; justify-content: space-between; }
        .entry-title { font-weight: bold; }
        .entry-dates { color: #4a5160; font-size: 9.5pt; }
        .entry-sub { font-style: italic; color: #4a5160; }
        ul { margin: 4px 0 0 18px; padding: 0; }
        li { margin-bottom: 2px; }
        .skills span { display: inline; }
    </style>
</head>
<body>
    <h1>{{.Contact.Name}}</h1>
    <div class="contact-line">
        {{.Contact.Email}}{{if .Contact.Phone}} &middot; {{.Contact.Phone}}{{end}}{{if .Contact.Location}} &middot; {{.Contact.Location}}{{end}}
    </div>
    {{if or .Contact.LinkedInURL .Contact.GitHubURL}}
    <div class="contact-line">
        {{if .Contact.LinkedInURL}}{{.Contact.LinkedInURL}}{{end}}{{if and .Contact.LinkedInURL .Contact.GitHubURL}} &middot; {{end}}{{if .Contact.GitHubURL}}{{.Contact.GitHubURL}}{{end}}
    </div>
    {{end}}

    {{if .Summary}}
    <h2>Summary</h2>
    <p>{{.Summary}}</p>
    {{end}}

    {{if .JobDescription}}
    <h2>Target Role</h2>
    <p>{{.JobDescription}}</p>
    {{end}}

    {{if or .Skills.Technical .Skills.Soft}}
    <h2>Skills</h2>
    <div class="skills">
        {{if .Skills.Technical}}<p><b>Technical:</b> {{range $i, $s := .Skills.Technical}}{{if $i}}, {{end}}{{$s}}{{end}}</p>{{end}}
        {{if .Skills.Soft}}<p><b>Soft:</b> {{range $i, $s := .Skills.Soft}}{{if $i}}, {{end}}{{$s}}{{end}}</p>{{end}}
    </div>
    {{end}}

    {{if .Experience}}
    <h2>Experience</h2>
    {{range .Experience}}
    <div class="entry">
        <div class="entry-head">
            <span class="entry-title">{{.Title}}</span>
            <span class="entry-dates">{{.StartDate}}{{if .EndDate}} &ndash; {{.EndDate}}{{else}} &ndash; Present{{end}}</span>
        </div>
        <div class="entry-sub">{{.Company}}{{if .Location}}, {{.Location}}{{end}}</div>
        {{if .Achievements}}
        <ul>
            {{range .Achievements}}<li>{{.}}</li>{{end}}
        </ul>
        {{end}}
    </div>
    {{end}}
    {{end}}

    {{if .Education}}
    <h2>Education</h2>
    {{range .Education}}
    <div class="entry">
        <div class="entry-head">
            <span class="entry-title">{{.School}}</span>
            <span class="entry-dates">{{.StartDate}}{{if .EndDate}} &ndash; {{.EndDate}}{{end}}</span>
        </div>
        <div class="entry-sub">{{.Degree}}{{if .Field}}, {{.Field}}{{end}}</div>
    </div>
    {{end}}
    {{end}}
</body>
</html>
`

// CoverLetterTemplate is the built-in cover letter layout. Body paragraphs
// arrive pre-split, one entry per paragraph.
const CoverLetterTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        @page { size: A4; margin: 25mm 22mm; }
        body {
            margin: 0;
            font-family: 'Georgia', serif;
            font-size: 11pt;
            color: #1f2430;
            line-height: 1.5;
        }
        .sender { margin-bottom: 18px; }
        .sender-name { font-size: 15pt; font-weight: bold; }
        .sender-meta { color: #4a5160; font-size: 9.5pt; }
        .date { margin-bottom: 18px; }
        .recipient { margin-bottom: 18px; }
        p { margin: 0 0 12px; }
        .signoff { margin-top: 24px; }
    </style>
</head>
<body>
    <div class="sender">
        <div class="sender-name">{{.Contact.Name}}</div>
        <div class="sender-meta">
            {{.Contact.Email}}{{if .Contact.Phone}} &middot; {{.Contact.Phone}}{{end}}{{if .Contact.Location}} &middot; {{.Contact.Location}}{{end}}
        </div>
    </div>

    {{if .Date}}<div class="date">{{.Date}}</div>{{end}}

    {{if .JobCompany}}
    <div class="recipient">
        Hiring Team<br/>
        {{.JobCompany}}{{if .JobTitle}}<br/>Re: {{.JobTitle}}{{end}}
    </div>
    {{end}}

    {{range .Body}}<p>{{.}}</p>{{end}}

    <div class="signoff">
        Sincerely,<br/>
        {{.Contact.Name}}
    </div>
</body>
</html>
`
