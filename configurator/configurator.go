// Configuration defaults and file handling for the gerberview CLI.
// The core library takes no configuration; everything here tunes the
// command-line front end only.
package configurator

import (
	"fmt"

	"github.com/spf13/viper"
)

const (
	CfgCommonPrintStatistic string = "common.PrintStatistic"
	CfgCommonPrintWarnings  string = "common.PrintWarnings"

	CfgRendererGeneratePNG  string = "renderer.GeneratePNG"
	CfgRendererOutFile      string = "renderer.OutFile"
	CfgRendererCanvasWidth  string = "renderer.CanvasWidth"
	CfgRendererCanvasHeight string = "renderer.CanvasHeight"
	CfgRendererMarginMM     string = "renderer.MarginMM"
)

func SetDefaults(v *viper.Viper) {
	v.SetConfigName("config") // no need to include file extension
	v.AddConfigPath(".")      // set the path of your config file
	v.SetConfigType("toml")

	// diagnostic messages
	v.SetDefault(CfgCommonPrintStatistic, true)
	v.SetDefault(CfgCommonPrintWarnings, true)

	//
	v.SetDefault(CfgRendererGeneratePNG, false)
	v.SetDefault(CfgRendererOutFile, "out.png")
	v.SetDefault(CfgRendererCanvasWidth, 1024)
	v.SetDefault(CfgRendererCanvasHeight, 1024)
	v.SetDefault(CfgRendererMarginMM, 2.0)
}

func ProcessConfigFile(v *viper.Viper) error {
	return v.ReadInConfig()
}

func DiagnosticAllCfgPrint(v *viper.Viper) {
	for key, data := range v.AllSettings() {
		fmt.Println(key, ":", data)
	}
	fmt.Println()
}
