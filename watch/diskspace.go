package watch

import (
	"log/slog"

	"github.com/shirou/gopsutil/v3/disk"
)

// hasSufficientDiskSpace checks free space on the watched directory before
// starting a scan, adapted from the teacher's web-ingest service check
// (there it gated an HTTP 429 response; here it gates skipping the scan,
// since this driver has no caller to signal back to).
func (d *Driver) hasSufficientDiskSpace() (ok bool, freePct float64) {
	if d.MinFreeDiskPct <= 0 {
		return true, 100
	}
	usage, err := disk.Usage(d.Dir)
	if err != nil {
		slog.Warn("could not determine disk usage, proceeding anyway", "dir", d.Dir, "err", err)
		return true, 100
	}
	free := 100 - usage.UsedPercent
	return free >= d.MinFreeDiskPct, free
}
