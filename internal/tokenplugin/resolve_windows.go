//go:build windows

package tokenplugin

func binaryFileName(name string) string {
	return name + ".exe"
}
