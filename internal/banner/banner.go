package banner

import "github.com/fatih/color"

// Version is printed in the banner and the root command.
const Version = "1.0.0"

func GetBanner() string {
	cyan := color.New(color.FgCyan).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	banner := `
` + cyan(`
▐▄• ▄ .▄▄ · .▄▄ ·   ·▄▄▄▄  ▄▄▄ .▄▄▄▄▄▄▄▄ . ▄▄· ▄▄▄▄▄▪   ▌ ▐·▄▄▄ .
 █▌█▌▪▐█ ▀. ▐█ ▀.   ██▪ ██ ▀▄.▀·•██  ▀▄.▀·▐█ ▌▪•██  ██ ▪█·█▌▀▄.▀·
 ·██·  ▄▀▀▀█▄▄▀▀▀█▄  ▐█· ▐█▌▐▀▀▪▄ ▐█.▪▐▀▀▪▄██ ▄▄ ▐█.▪▐█·▐█▐█•▐▀▀▪▄
▪▐█·█▌▐█▄▪▐█▐█▄▪▐█  ██. ██ ▐█▄▄▌ ▐█▌·▐█▄▄▌▐███▌ ▐█▌·▐█▌ ███ ▐█▄▄▌
•▀▀ ▀▀ ▀▀▀▀  ▀▀▀▀   ▀▀▀▀▀•  ▀▀▀  ▀▀▀  ▀▀▀ ·▀▀▀  ▀▀▀ ▀▀▀. ▀   ▀▀▀
`) + `
          ` + red(`xssdetective - Form XSS Tester v`+Version) + `

` + cyan(`━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━`) + `
  ` + yellow(`Features:`) + `
    • Every selected test on every selected field at once
    • Hidden, uniquely named submission frames
    • HTTP or headless browser engine
    • YAML test catalogs
    • Per-field PASSED / FAILED results
` + cyan(`━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━`) + `
`
	return banner
}
