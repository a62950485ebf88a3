package results

import "time"

const lockPoll = 20 * time.Millisecond
