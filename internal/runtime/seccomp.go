package runtime

import "encoding/json"

// SeccompProfile is the JSON shape consumed by the container runtime's
// `security_opt=seccomp=<json>` option.
type SeccompProfile struct {
	DefaultAction string           `json:"defaultAction"`
	Architectures []string         `json:"architectures"`
	Syscalls      []SeccompSyscall `json:"syscalls"`
}

// SeccompSyscall groups syscalls sharing one action.
type SeccompSyscall struct {
	Names  []string     `json:"names"`
	Action string       `json:"action"`
	Args   []SeccompArg `json:"args,omitempty"`
}

// SeccompArg narrows a rule to a specific argument value.
type SeccompArg struct {
	Index uint   `json:"index"`
	Value uint64 `json:"value"`
	Op    string `json:"op"`
}

// defaultAllowed is the syscall surface a well-behaved interpreter/compiler
// process needs; everything else falls through to DefaultAction (errno).
var defaultAllowed = [][]string{
	{"read", "write", "open", "close", "stat", "fstat", "lstat"},
	{"poll", "lseek", "mmap", "mprotect", "munmap", "brk"},
	{"rt_sigaction", "rt_sigprocmask", "rt_sigreturn", "ioctl"},
	{"access", "pipe", "select", "sched_yield", "mremap"},
	{"dup", "dup2", "pause", "nanosleep", "getitimer", "alarm"},
	{"setitimer", "getpid", "socket", "connect", "sendto"},
	{"recvfrom", "sendmsg", "recvmsg", "shutdown", "bind"},
	{"listen", "getsockname", "getpeername", "socketpair"},
	{"setsockopt", "getsockopt", "clone", "fork", "vfork"},
	{"execve", "exit", "wait4", "kill", "uname", "fcntl"},
	{"flock", "fsync", "fdatasync", "truncate", "ftruncate"},
	{"getdents", "getcwd", "chdir", "fchdir", "rename"},
	{"mkdir", "rmdir", "creat", "link", "unlink", "symlink"},
	{"readlink", "chmod", "fchmod", "chown", "fchown"},
	{"lchown", "umask", "gettimeofday", "getrlimit", "getrusage"},
	{"sysinfo", "times", "getuid", "getgid", "setuid"},
	{"setgid", "geteuid", "getegid", "setpgid", "getppid"},
	{"getpgrp", "setsid", "setreuid", "setregid", "getgroups"},
	{"setgroups", "setresuid", "getresuid", "setresgid"},
	{"getresgid", "getpgid", "setfsuid", "setfsgid", "getsid"},
	{"capget", "capset", "rt_sigpending", "rt_sigtimedwait"},
	{"rt_sigqueueinfo", "sigaltstack", "utime", "mknod"},
	{"personality", "statfs", "fstatfs", "getpriority"},
	{"setpriority", "sched_setparam", "sched_getparam"},
	{"sched_setscheduler", "sched_getscheduler"},
	{"sched_get_priority_max", "sched_get_priority_min"},
	{"sched_rr_get_interval", "mlock", "munlock", "mlockall"},
	{"munlockall", "vhangup", "prctl", "arch_prctl"},
	{"setrlimit", "sync", "settimeofday"},
	{"sethostname", "setdomainname"},
	{"gettid", "readahead", "setxattr", "lsetxattr"},
	{"fsetxattr", "getxattr", "lgetxattr", "fgetxattr"},
	{"listxattr", "llistxattr", "flistxattr", "removexattr"},
	{"lremovexattr", "fremovexattr", "tkill", "time"},
	{"futex", "sched_setaffinity", "sched_getaffinity"},
	{"set_thread_area", "io_setup", "io_destroy", "io_getevents"},
	{"io_submit", "io_cancel", "get_thread_area", "epoll_create"},
	{"remap_file_pages", "getdents64", "set_tid_address"},
	{"restart_syscall", "semtimedop", "fadvise64", "timer_create"},
	{"timer_settime", "timer_gettime", "timer_getoverrun"},
	{"timer_delete", "clock_settime", "clock_gettime"},
	{"clock_getres", "clock_nanosleep", "exit_group", "epoll_wait"},
	{"epoll_ctl", "tgkill", "utimes", "mbind"},
	{"set_mempolicy", "get_mempolicy", "mq_open", "mq_unlink"},
	{"mq_timedsend", "mq_timedreceive", "mq_notify"},
	{"mq_getsetattr", "waitid", "add_key", "request_key"},
	{"keyctl", "ioprio_set", "ioprio_get", "inotify_init"},
	{"inotify_add_watch", "inotify_rm_watch", "migrate_pages"},
	{"openat", "mkdirat", "mknodat", "fchownat", "futimesat"},
	{"newfstatat", "unlinkat", "renameat", "linkat", "symlinkat"},
	{"readlinkat", "fchmodat", "faccessat", "pselect6", "ppoll"},
	{"set_robust_list", "get_robust_list", "splice"},
	{"tee", "sync_file_range", "vmsplice", "move_pages"},
	{"utimensat", "epoll_pwait", "signalfd", "timerfd_create"},
	{"eventfd", "fallocate", "timerfd_settime", "timerfd_gettime"},
	{"accept4", "signalfd4", "eventfd2", "epoll_create1"},
	{"dup3", "pipe2", "inotify_init1", "preadv", "pwritev"},
	{"rt_tgsigqueueinfo", "recvmmsg"},
	{"prlimit64"},
	{"name_to_handle_at", "open_by_handle_at", "clock_adjtime"},
	{"syncfs", "sendmmsg", "getcpu"},
	{"process_vm_readv", "process_vm_writev", "kcmp"},
	{"sched_setattr", "sched_getattr"},
	{"renameat2", "getrandom", "memfd_create"},
	{"execveat", "userfaultfd", "membarrier"},
	{"mlock2", "copy_file_range", "preadv2", "pwritev2"},
	{"statx", "io_pgetevents", "rseq"},
}

// blockedErrno are denied outright, independent of argument value.
var blockedErrno = [][]string{
	{"mount", "umount2"},
	{"reboot", "swapon", "swapoff"},
	{"kexec_load", "kexec_file_load"},
	{"acct"},
	{"setns", "unshare"},
	{"init_module", "delete_module", "finit_module"},
	{"quotactl"},
	{"perf_event_open"},
	{"bpf"},
}

// DefaultSeccompProfile returns the hardening profile's default JSON
// content. At minimum ptrace is in an errno-action rule (spec.md §6).
func DefaultSeccompProfile() []byte {
	syscalls := make([]SeccompSyscall, 0, len(defaultAllowed)+len(blockedErrno)+1)
	for _, names := range defaultAllowed {
		syscalls = append(syscalls, SeccompSyscall{Names: names, Action: "SCMP_ACT_ALLOW"})
	}
	syscalls = append(syscalls, SeccompSyscall{
		Names:  []string{"ptrace"},
		Action: "SCMP_ACT_ERRNO",
		Args:   []SeccompArg{{Index: 0, Value: 0, Op: "SCMP_CMP_NE"}},
	})
	for _, names := range blockedErrno {
		syscalls = append(syscalls, SeccompSyscall{Names: names, Action: "SCMP_ACT_ERRNO"})
	}

	profile := SeccompProfile{
		DefaultAction: "SCMP_ACT_ERRNO",
		Architectures: []string{
			"SCMP_ARCH_X86_64",
			"SCMP_ARCH_X86",
			"SCMP_ARCH_AARCH64",
			"SCMP_ARCH_ARM",
		},
		Syscalls: syscalls,
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		// The profile above is a static literal; MarshalIndent can only
		// fail on unsupported types, which this struct never contains.
		panic("seccomp profile failed to marshal: " + err.Error())
	}
	return data
}
