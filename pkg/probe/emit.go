package probe

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/huanfeng/apkset-cli/pkg/models"
)

// Emit renders spec as the getprop and am get-config outputs a device with
// those capabilities would print. Parse(Emit(s)) yields s for valid specs.
func Emit(spec *models.DeviceSpec) (sdkOutput, configOutput string) {
	sdkOutput = fmt.Sprintf("%d\n", spec.SdkVersion)

	qualifiers := []string{"mcc310", "mnc260"}
	if len(spec.SupportedLocales) > 0 {
		locales := make([]string, 0, len(spec.SupportedLocales))
		for _, l := range spec.SupportedLocales {
			locales = append(locales, localeQualifier(l))
		}
		qualifiers = append(qualifiers, strings.Join(locales, ","))
	}
	qualifiers = append(qualifiers, "ldltr", "sw411dp", "w411dp", "h659dp", "normal", "long", "notround", "port", "notnight")
	if spec.ScreenDensity > 0 {
		qualifiers = append(qualifiers, fmt.Sprintf("%ddpi", spec.ScreenDensity))
	}
	qualifiers = append(qualifiers, "finger", "keysexposed", "nokeys", "navhidden", "nonav")
	if spec.SdkVersion > 0 {
		qualifiers = append(qualifiers, fmt.Sprintf("v%d", spec.SdkVersion))
	}

	var b strings.Builder
	b.WriteString("abi: ")
	b.WriteString(strings.Join(spec.SupportedAbis, ","))
	b.WriteString("\n")
	b.WriteString("config: ")
	b.WriteString(strings.Join(qualifiers, "-"))
	b.WriteString("\n")
	return sdkOutput, b.String()
}

// localeQualifier converts a BCP-47 tag to its resource qualifier form.
// Tags beyond language and region use the b+ form so that scripts,
// variants and extensions survive.
func localeQualifier(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	canonical := t.String()
	base, _ := t.Base()
	region, _ := t.Region()

	switch canonical {
	case base.String():
		return canonical
	case base.String() + "-" + region.String():
		return base.String() + "-r" + region.String()
	}
	return "b+" + strings.ReplaceAll(canonical, "-", "+")
}
