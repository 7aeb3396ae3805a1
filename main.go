// Command companycrawler crawls company websites and builds a sales
// intelligence workbook.
package main

import "github.com/JakeFAU/company-intel-crawler/cmd"

func main() {
	cmd.Execute()
}
